package storage

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/quicknote/internal/apperr"
)

const maxNameLen = 255

// NormalizeName returns name in Unicode NFC form. Names are stored as given
// and compared in this form, so the same visible name typed on different
// platforms finds the same file.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// ValidateName reports whether name can be used as a plain file name inside a
// managed directory. Errors wrap apperr.ErrInvalidName.
func ValidateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.RuneLength(1, maxNameLen),
		validation.By(plainName),
	)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", apperr.ErrInvalidName, name, err)
	}
	return nil
}

func plainName(value interface{}) error {
	s, _ := value.(string)
	if s == "." || s == ".." {
		return errors.New("must not be a directory reference")
	}
	if strings.ContainsAny(s, `/\`) {
		return errors.New("must not contain path separators")
	}
	if strings.HasPrefix(s, tempPrefix) {
		return errors.New("uses a reserved prefix")
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return errors.New("must not contain control characters")
		}
	}
	return nil
}
