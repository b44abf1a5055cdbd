package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedRecord matches every *MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError reports a stored record that failed validation when decoded.
type MalformedRecordError struct {
	Kind   string
	ID     string
	Fields []string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record %q: invalid %s", e.Kind, e.ID, strings.Join(e.Fields, ", "))
}

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func v() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func ValidateTrip(t Trip) error {
	return check("trip", string(t.ID), v().Struct(t))
}

func ValidateAccount(a Account) error {
	return check("account", string(a.ID), v().Struct(a))
}

func ValidateTransaction(r TransactionRecord) error {
	return check("transaction", string(r.ID), v().Struct(r))
}

func ValidateUser(u User) error {
	return check("user", string(u.ID), v().Struct(u))
}

func check(kind, id string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	me := &MalformedRecordError{Kind: kind, ID: id}
	for _, fe := range verrs {
		me.Fields = append(me.Fields, fe.Namespace())
	}
	return me
}
