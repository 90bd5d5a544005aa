// Package schema provides the parameter type system used by the node type
// registry to validate node configuration.
//
// Each node type declares its parameters with a catalog type name
// ("string", "number", "boolean", "options", "json", "reference", ...).
// ParseType turns those names into validators and Validate checks a whole
// data bag, rejecting undeclared fields:
//
//	s := schema.Schema{
//	    "selectedTool":  {Type: schema.Options(), Required: true},
//	    "maxIterations": {Type: schema.Integer()},
//	}
//
//	if err := schema.Validate(s, node.Data); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        // report e
//	    }
//	}
package schema
