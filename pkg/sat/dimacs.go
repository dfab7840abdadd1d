package sat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// WriteDimacs writes the recorded formula in DIMACS CNF format
func (s *Gini) WriteDimacs(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "p cnf %d %d\n", s.vars, len(s.clauses)); err != nil {
		return err
	}

	buf := make([]byte, 0, 64)
	for _, clause := range s.clauses {
		buf = buf[:0]
		for _, m := range clause {
			buf = strconv.AppendInt(buf, int64(m.Dimacs()), 10)
			buf = append(buf, ' ')
		}
		buf = append(buf, '0', '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteDimacsFile writes the formula to the named file
func (s *Gini) WriteDimacsFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create DIMACS file")
	}
	if err := s.WriteDimacs(file); err != nil {
		file.Close()
		return errors.Wrapf(err, "failed to write %s", filename)
	}
	return file.Close()
}
