package navigation

import (
	"github.com/Jasani8259/Final-Capstone/internal/model"
)

type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeDenied   Outcome = "denied"
	OutcomeNotFound Outcome = "not_found"
)

type Resolution struct {
	Requested string  `json:"requested"`
	View      View    `json:"view"`
	Outcome   Outcome `json:"outcome"`
}

// Allows reports whether identity may open a view requiring roles.
func Allows(roles []model.Role, identity *model.Identity) bool {
	if len(roles) == 0 {
		return true
	}
	if identity == nil {
		return false
	}
	for _, role := range roles {
		if role == identity.Role {
			return true
		}
	}
	return false
}

// Resolve maps a path to a view for identity, which may be nil. It is the
// only place access is decided.
func Resolve(views *Registry, path string, identity *model.Identity) Resolution {
	requested := Normalize(path)
	view, ok := views.Lookup(requested)
	if !ok {
		return Resolution{
			Requested: requested,
			View:      View{Path: requested, Title: "Page not found", Kind: KindNotFound},
			Outcome:   OutcomeNotFound,
		}
	}
	if !Allows(view.Roles, identity) {
		return Resolution{
			Requested: requested,
			View:      View{Path: requested, Title: "Access denied", Kind: KindDenied, Roles: view.Roles},
			Outcome:   OutcomeDenied,
		}
	}
	return Resolution{Requested: requested, View: view, Outcome: OutcomeResolved}
}
