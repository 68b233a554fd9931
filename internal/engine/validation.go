package engine

import "simcore/internal/primitives"

const maxNameLen = 64

// validate checks the pre-mutation field contract for cmd. Returns a
// ValidationFailed SimError listing every violated field, or nil if cmd is
// clean. No mutation or event emission happens before this check runs.
func validate(cmd Command) error {
	var fields []primitives.FieldError

	switch cmd.Kind {
	case CommandCreateWorld:
		name := cmd.CreateWorld.Name
		if len(name) == 0 {
			fields = append(fields, primitives.FieldError{Field: "name", Message: "World name must not be empty"})
		} else if len(name) > maxNameLen {
			fields = append(fields, primitives.FieldError{Field: "name", Message: "World name must be at most 64 characters"})
		}

	case CommandCreateZone:
		if len(cmd.CreateZone.Name) > maxNameLen {
			fields = append(fields, primitives.FieldError{Field: "name", Message: "Zone name must be at most 64 characters"})
		}

	case CommandTickN:
		n := cmd.TickN.N
		if n < 1 {
			fields = append(fields, primitives.FieldError{Field: "n", Message: "Tick count must be > 0"})
		} else if n > 10000 {
			fields = append(fields, primitives.FieldError{Field: "n", Message: "Tick count must be at most 10000"})
		}

	case CommandSetEntityProperty:
		p := cmd.SetEntityProperty
		switch p.Property {
		case "name":
			if p.Name == nil {
				fields = append(fields, primitives.FieldError{Field: "name", Message: "Name value must be set for property \"name\""})
			}
		case "amount":
			if p.Amount == nil {
				fields = append(fields, primitives.FieldError{Field: "amount", Message: "Amount value must be set for property \"amount\""})
			}
		case "health":
			if p.Health == nil {
				fields = append(fields, primitives.FieldError{Field: "health", Message: "Health value must be set for property \"health\""})
			}
		default:
			fields = append(fields, primitives.FieldError{Field: "property", Message: "Property must be one of \"name\", \"amount\", \"health\""})
		}
	}

	if len(fields) > 0 {
		return primitives.NewValidationFailed(fields...)
	}
	return nil
}
