package echoportal

import (
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/session"
)

const (
	VariantAdmin    = "admin"
	VariantLecturer = "lecturer"
	VariantStudent  = "student"
)

// Variant describes one of the portals served by this binary.
type Variant struct {
	Name  string
	Title string
	Gate  session.Options
	// UserPages enables the /users pages.
	UserPages bool
}

var variants = map[string]Variant{
	VariantAdmin: {
		Name:      VariantAdmin,
		Title:     "Admin Portal",
		Gate:      session.Options{CookieName: "token", CallbackParam: "callbackUrl"},
		UserPages: true,
	},
	VariantLecturer: {
		Name:  VariantLecturer,
		Title: "Lecturer Portal",
		Gate:  session.Options{CookieName: "token", BearerHeader: true, CallbackParam: "callbackUrl"},
	},
	VariantStudent: {
		Name:  VariantStudent,
		Title: "Student Portal",
		Gate:  session.Options{CookieName: "accessToken"},
	},
}

func VariantByName(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, errors.Errorf("unknown portal %q", name)
	}
	return v, nil
}
