package introspection

import (
	"fmt"
	"strings"
	"sync"

	schema "github.com/hanpama/relaygraph/internal/schema"
)

const typesSDL = `
type Query {
  "Access the current type schema of this server."
  __schema: __Schema!
  "Request the type information of a single type."
  __type(name: String!): __Type
}

"A GraphQL Schema defines the capabilities of a GraphQL server."
type __Schema {
  description: String
  types: [__Type!]!
  queryType: __Type!
  mutationType: __Type
  subscriptionType: __Type
  directives: [__Directive!]!
}

"The fundamental unit of any GraphQL Schema is the type."
type __Type {
  kind: __TypeKind!
  name: String
  description: String
  specifiedByURL: String
  fields(includeDeprecated: Boolean = false): [__Field!]
  interfaces: [__Type!]
  possibleTypes: [__Type!]
  enumValues(includeDeprecated: Boolean = false): [__EnumValue!]
  inputFields(includeDeprecated: Boolean = false): [__InputValue!]
  ofType: __Type
  isOneOf: Boolean
}

enum __TypeKind {
  SCALAR
  OBJECT
  INTERFACE
  UNION
  ENUM
  INPUT_OBJECT
  LIST
  NON_NULL
}

type __Field {
  name: String!
  description: String
  args(includeDeprecated: Boolean = false): [__InputValue!]!
  type: __Type!
  isDeprecated: Boolean!
  deprecationReason: String
}

type __InputValue {
  name: String!
  description: String
  type: __Type!
  defaultValue: String
  isDeprecated: Boolean!
  deprecationReason: String
}

type __EnumValue {
  name: String!
  description: String
  isDeprecated: Boolean!
  deprecationReason: String
}

type __Directive {
  name: String!
  description: String
  isRepeatable: Boolean!
  locations: [__DirectiveLocation!]!
  args(includeDeprecated: Boolean = false): [__InputValue!]!
}

enum __DirectiveLocation {
  QUERY
  MUTATION
  SUBSCRIPTION
  FIELD
  FRAGMENT_DEFINITION
  FRAGMENT_SPREAD
  INLINE_FRAGMENT
  VARIABLE_DEFINITION
  SCHEMA
  SCALAR
  OBJECT
  FIELD_DEFINITION
  ARGUMENT_DEFINITION
  INTERFACE
  UNION
  ENUM
  ENUM_VALUE
  INPUT_OBJECT
  INPUT_FIELD_DEFINITION
}
`

var (
	metaOnce   sync.Once
	metaSchema *schema.Schema
)

func meta() *schema.Schema {
	metaOnce.Do(func() {
		s, err := schema.BuildFromSDL(typesSDL)
		if err != nil {
			panic(fmt.Sprintf("introspection types: %v", err))
		}
		metaSchema = s
	})
	return metaSchema
}

// Extend returns a copy of sch that also holds the introspection types and
// the __schema and __type fields on its query type. sch is not modified.
func Extend(sch *schema.Schema) *schema.Schema {
	out := schema.NewSchema(sch.Description).
		SetQueryType(sch.QueryType).
		SetMutationType(sch.MutationType).
		SetSubscriptionType(sch.SubscriptionType)
	for _, t := range sch.Types {
		out.AddType(t)
	}
	for _, d := range sch.Directives {
		out.AddDirective(d)
	}

	m := meta()
	for name, t := range m.Types {
		if strings.HasPrefix(name, "__") {
			out.AddType(t)
		}
	}
	if q := sch.GetQueryType(); q != nil {
		cp := *q
		cp.Fields = append(append([]*schema.Field{}, q.Fields...), m.GetQueryType().Fields...)
		out.AddType(&cp)
	}
	return out
}
