package helpers

import (
	"strings"

	"github.com/juju/errors"
)

// FoldErrors collapses a list of errors into one or nil.
func FoldErrors(errs []error) error {
	ss := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			ss = append(ss, e.Error())
		}
	}
	if len(ss) == 0 {
		return nil
	}
	return errors.Errorf("%s", strings.Join(ss, "\n"))
}
