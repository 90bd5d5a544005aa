package schema

// Field pairs a parameter type with its requiredness.
type Field struct {
	Type     Type
	Required bool
}

// Schema is a map of parameter names to their declared fields.
type Schema map[string]Field

// Validate checks if data conforms to the schema.
// Required fields must be present; present fields must match their type;
// fields not declared by the schema are rejected.
// The returned Errors lists every failure found.
func Validate(s Schema, data map[string]any) error {
	var errs Errors

	for name, field := range s {
		value, exists := data[name]
		if !exists || value == nil {
			if field.Required {
				errs = append(errs, &FieldError{Field: name, Reason: "required"})
			}
			continue
		}
		if err := field.Type.Validate(value); err != nil {
			errs = append(errs, &FieldError{Field: name, Reason: err.Error(), Value: value})
		}
	}

	for name, value := range data {
		if _, declared := s[name]; !declared {
			errs = append(errs, &FieldError{Field: name, Reason: "not defined in schema", Value: value})
		}
	}

	if len(errs) > 0 {
		return errs.sorted()
	}
	return nil
}

// ValidateField validates a single value against the schema.
// A nil value clears the field and is only rejected for undeclared names.
func ValidateField(s Schema, name string, value any) error {
	field, exists := s[name]
	if !exists {
		return &FieldError{Field: name, Reason: "not defined in schema", Value: value}
	}
	if value == nil {
		return nil
	}
	if err := field.Type.Validate(value); err != nil {
		return &FieldError{Field: name, Reason: err.Error(), Value: value}
	}
	return nil
}
