package token

import (
	"regexp"
	"time"
)

// namePattern matches valid token names: a letter followed by letters,
// digits, dots, underscores or dashes. Index keys all start with "^", so
// the pattern also keeps user tokens out of the index namespace.
var namePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)

// ValidateName checks a token name against the syntax rule and the
// reserved host set (hosts the router answers for itself).
func ValidateName(name string, reservedHosts map[string]bool) error {
	if name == "" {
		return NewValidationError("token name is required and cannot be blank")
	}
	if reservedHosts[name] {
		return NewValidationError("token name %s is reserved", name)
	}
	if !namePattern.MatchString(name) {
		return NewValidationError("token name %s must match %s", name, namePattern.String())
	}
	return nil
}

// ValidateRequest applies the pre-lock request checks of the
// create/update pipeline to the flat request body (token name already
// split off). admin selects the administrative update mode.
func ValidateRequest(tok string, body Record, admin bool) error {
	editable := 0
	for k, v := range body {
		switch {
		case UserEditableKeys(k):
			editable++
		case k == KeyPrevious:
			if _, ok := v.(map[string]any); !ok {
				if _, ok := v.(Record); !ok {
					return NewValidationError("field previous must be a map")
				}
			}
		case AdminOnlyKeys[k]:
			if !admin {
				return NewValidationError("field %s cannot be set by a user", k)
			}
		default:
			return NewValidationError("unsupported key %s in token description", k)
		}
	}
	if editable == 0 {
		return NewValidationError("token description for %s contains no user fields", tok)
	}

	if auth, ok := body[KeyAuthentication].(string); ok && auth == AuthenticationDisabled {
		if pu, _ := body[KeyPermittedUser].(string); pu != AllUsers {
			return NewValidationError(
				"a token with authentication disabled must specify permitted-user as %s", AllUsers)
		}
		if err := requireComplete(body, "a token with authentication disabled"); err != nil {
			return err
		}
	}

	if _, ok := body[KeyInterstitial]; ok {
		if err := requireComplete(body, "a token with interstitial-secs"); err != nil {
			return err
		}
	}

	return nil
}

// requireComplete checks that the body carries every required service
// parameter, i.e. describes a runnable service on its own.
func requireComplete(body Record, subject string) error {
	for _, k := range RequiredParameterKeys {
		if emptyValue(body[k]) {
			return NewValidationError("%s must define %s", subject, k)
		}
	}
	return nil
}

// ParseUpdateTime normalizes a last-update-time value supplied in an
// administrative request body: numbers pass through as epoch millis,
// strings are parsed as RFC 3339.
func ParseUpdateTime(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		ts, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return 0, NewValidationError("invalid last-update-time %q: expected RFC 3339", t)
		}
		return ts.UnixMilli(), nil
	default:
		return 0, NewValidationError("invalid last-update-time: expected string or number")
	}
}

// Validator checks a service description for syntactic soundness beyond
// the schema shape. The registry accepts it as an external collaborator;
// deep semantic validation is out of scope here.
type Validator func(params Record) error
