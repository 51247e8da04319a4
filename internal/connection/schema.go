package connection

import (
	"github.com/hanpama/relaygraph/internal/schema"
)

const PageInfoType = "PageInfo"

var pageInfo = schema.NewType(PageInfoType, schema.TypeKindObject, "Information about pagination in a connection.").
	AddField(schema.NewField("hasNextPage", "When paginating forwards, are there more items?", schema.NonNullType(schema.NamedType("Boolean")))).
	AddField(schema.NewField("hasPreviousPage", "When paginating backwards, are there more items?", schema.NonNullType(schema.NamedType("Boolean")))).
	AddField(schema.NewField("startCursor", "When paginating backwards, the cursor to continue.", schema.NamedType("String"))).
	AddField(schema.NewField("endCursor", "When paginating forwards, the cursor to continue.", schema.NamedType("String")))

// Arguments returns the pagination arguments of a connection field. A
// non-empty defaultOrdering becomes the default of the ordering argument.
func Arguments(defaultOrdering string) []*schema.InputValue {
	ordering := schema.NewInputValue("ordering", "Comma separated fields to sort by; prefix a field with - to sort descending.", schema.NamedType("String"))
	if defaultOrdering != "" {
		ordering.SetDefault(defaultOrdering)
	}
	return []*schema.InputValue{
		schema.NewInputValue("before", "", schema.NamedType("String")),
		schema.NewInputValue("after", "", schema.NamedType("String")),
		schema.NewInputValue("first", "", schema.NamedType("Int")),
		schema.NewInputValue("last", "", schema.NamedType("Int")),
		ordering,
	}
}

// Define adds the PageInfo, <Type>Edge and <Type>Connection types to s.
func (f *Field) Define(s *schema.Schema) error {
	if err := s.Define(pageInfo); err != nil {
		return err
	}
	edge := schema.NewType(f.Type+"Edge", schema.TypeKindObject, "A Relay edge containing a `"+f.Type+"` and its cursor.").
		AddField(schema.NewField("node", "The item at the end of the edge", schema.NamedType(f.Type))).
		AddField(schema.NewField("cursor", "A cursor for use in pagination", schema.NonNullType(schema.NamedType("String"))))
	conn := schema.NewType(f.ConnectionType(), schema.TypeKindObject, "").
		AddField(schema.NewField("pageInfo", "Pagination data for this connection.", schema.NonNullType(schema.NamedType(PageInfoType)))).
		AddField(schema.NewField("edges", "Contains the nodes in this connection.", schema.NonNullType(schema.ListType(schema.NamedType(edge.Name))))).
		AddField(schema.NewField("totalCount", "", schema.NamedType("Int")))
	if err := s.Define(edge); err != nil {
		return err
	}
	return s.Define(conn)
}

// SchemaField returns a field definition of the connection type. Connection
// fields resolve asynchronously so their collections load in one batch per
// depth.
func (f *Field) SchemaField(name, description, defaultOrdering string) *schema.Field {
	fd := schema.NewField(name, description, schema.NamedType(f.ConnectionType())).SetAsync(true)
	for _, arg := range Arguments(defaultOrdering) {
		fd.AddArgument(arg)
	}
	return fd
}
