// Package demo assembles a small widget catalogue on top of the relaygraph
// building blocks: a paginated widget connection, a single-widget lookup,
// serializer-backed create/update/delete mutations, a hook-backed restock
// mutation and a staff-only inventory report.
package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hanpama/relaygraph/internal/connection"
	"github.com/hanpama/relaygraph/internal/enumcache"
	"github.com/hanpama/relaygraph/internal/executor"
	"github.com/hanpama/relaygraph/internal/fault"
	"github.com/hanpama/relaygraph/internal/introspection"
	"github.com/hanpama/relaygraph/internal/mutation"
	"github.com/hanpama/relaygraph/internal/permission"
	"github.com/hanpama/relaygraph/internal/runtime"
	"github.com/hanpama/relaygraph/internal/schema"
	"github.com/hanpama/relaygraph/internal/serializer"
	"github.com/hanpama/relaygraph/internal/store"
)

// Widget is the catalogue record.
var Widget = &store.Model{
	Name: "Widget",
	Attributes: []store.Attribute{
		{Name: "id", Kind: store.KindInt},
		{Name: "name", Kind: store.KindString},
		{Name: "price", Kind: store.KindInt},
		{Name: "finish", Kind: store.KindString},
		{Name: "stock", Kind: store.KindInt},
		{Name: "restocked_at", Kind: store.KindTime},
	},
}

var widgetSerializer = &serializer.Serializer{
	Name:  "WidgetSerializer",
	Model: Widget,
	Fields: []*serializer.Field{
		{Name: "id", Kind: store.KindInt, ReadOnly: true},
		{Name: "name", Kind: store.KindString, Required: true, Rules: "min=1,max=64"},
		{Name: "price", Kind: store.KindInt, Required: true, Rules: "min=1"},
		{Name: "finish", Kind: store.KindString, Default: "matte", Choices: []serializer.Choice{
			{Value: "matte", Label: "Matte"},
			{Value: "satin", Label: "Satin"},
			{Value: "high-gloss", Label: "High gloss"},
		}},
		{Name: "stock", Kind: store.KindInt, Default: 0, Rules: "min=0"},
	},
}

var restockSerializer = &serializer.Serializer{
	Name:  "RestockSerializer",
	Model: Widget,
	Fields: []*serializer.Field{
		{Name: "quantity", Kind: store.KindInt, Required: true, Description: "Units added to the stock."},
	},
}

// Options configures the demo application.
type Options struct {
	DefaultPageSize int
	Introspection   bool
	Logger          logrus.FieldLogger
	// Enums caches enum types for choice fields; a private cache when nil.
	Enums *enumcache.Cache
}

// App is the assembled schema and runtime.
type App struct {
	// Schema is the executable schema, introspection types included when
	// enabled. Base is the schema without them.
	Schema  *schema.Schema
	Base    *schema.Schema
	Runtime executor.Runtime
}

// New builds the demo application over st.
func New(st store.Store, opt Options) (*App, error) {
	if opt.Enums == nil {
		opt.Enums = enumcache.New(nil, nil)
	}
	s := schema.NewSchema("Widget catalogue.").AddBuiltins().
		SetQueryType("Query").
		SetMutationType("Mutation")
	if err := s.Define(schema.DateTime); err != nil {
		return nil, err
	}

	widgets := &mutation.Mutation{
		Name:        "WidgetMutation",
		Model:       Widget,
		Store:       st,
		Serializer:  widgetSerializer,
		Permissions: permission.Gate{permission.IsAuthenticated},
		Enums:       opt.Enums,
		Logger:      opt.Logger,
	}
	create, del, update, err := widgets.MutationFields(s)
	if err != nil {
		return nil, fmt.Errorf("widget mutation fields: %w", err)
	}

	restock := &mutation.Mutation{
		Name:        "RestockMutation",
		Model:       Widget,
		Store:       st,
		Serializer:  restockSerializer,
		Strategy:    mutation.Hooks{OnUpdate: restockHook(st)},
		Permissions: permission.Gate{permission.IsAuthenticated},
		Enums:       opt.Enums,
		Logger:      opt.Logger,
	}
	restockField, err := restock.UpdateField(s, "restockWidget")
	if err != nil {
		return nil, fmt.Errorf("restock field: %w", err)
	}

	finish, err := opt.Enums.GetOrCreate(widgetSerializer, widgetSerializer.Field("finish"))
	if err != nil {
		return nil, err
	}
	if err := s.Define(finish); err != nil {
		return nil, err
	}
	widgetType := schema.NewType("Widget", schema.TypeKindObject, "A catalogue item.").
		AddField(schema.NewField("id", "", schema.NonNullType(schema.NamedType("ID")))).
		AddField(schema.NewField("name", "", schema.NonNullType(schema.NamedType("String")))).
		AddField(schema.NewField("price", "Price in cents.", schema.NonNullType(schema.NamedType("Int")))).
		AddField(schema.NewField("finish", "", schema.NamedType(finish.Name))).
		AddField(schema.NewField("stock", "", schema.NamedType("Int"))).
		AddField(schema.NewField("restockedAt", "", schema.NamedType(schema.DateTime.Name)))
	if err := s.Define(widgetType); err != nil {
		return nil, err
	}

	conn := &connection.Field{Type: "Widget", DefaultPageSize: opt.DefaultPageSize}
	if err := conn.Define(s); err != nil {
		return nil, err
	}
	report := schema.NewType("InventoryReport", schema.TypeKindObject, "").
		AddField(schema.NewField("widgets", "", schema.NonNullType(schema.NamedType("Int")))).
		AddField(schema.NewField("units", "", schema.NonNullType(schema.NamedType("Int")))).
		AddField(schema.NewField("value", "Stock value in cents.", schema.NonNullType(schema.NamedType("Int"))))
	if err := s.Define(report); err != nil {
		return nil, err
	}
	query := schema.NewType("Query", schema.TypeKindObject, "").
		AddField(conn.SchemaField("widgets", "Widgets in the catalogue.", "name")).
		AddField(schema.NewField("widget", "", schema.NamedType("Widget")).
			AddArgument(schema.NewInputValue("id", "", schema.NonNullType(schema.NamedType("ID"))))).
		AddField(schema.NewField("inventory", "Staff only.", schema.NonNullType(schema.NamedType("InventoryReport"))))
	if err := s.Define(query); err != nil {
		return nil, err
	}
	if err := s.Define(schema.NewType("Mutation", schema.TypeKindObject, "").
		AddField(create).AddField(update).AddField(del).AddField(restockField)); err != nil {
		return nil, err
	}

	rt := runtime.New(s)
	rt.BindConnection("Query", "widgets", conn, runtime.StoreSource(st, Widget, nil))
	rt.BindRetrieve("Query", "widget", runtime.Retrieve{Model: Widget, Store: st})
	rt.Bind("Query", "inventory", permission.StaffRequired(inventory(st)))
	rt.Bind("Widget", "restockedAt", func(_ context.Context, source any, _ map[string]any) (any, error) {
		return source.(store.Record)["restocked_at"], nil
	})
	if err := rt.BindMutations(widgets, create.Name, update.Name, del.Name); err != nil {
		return nil, err
	}
	if err := rt.BindMutation(restockField.Name, restock, mutation.OpUpdate); err != nil {
		return nil, err
	}

	app := &App{Schema: s, Base: s, Runtime: rt}
	if opt.Introspection {
		app.Runtime, app.Schema = introspection.Wrap(rt, s)
	}
	return app, nil
}

// restockHook adds the requested quantity to the stock of existing.
func restockHook(st store.Store) mutation.UpdateFunc {
	return func(ctx context.Context, existing store.Record, data map[string]any) (store.Record, error) {
		n, err := store.Normalize(store.KindInt, data["quantity"])
		qty, _ := n.(int)
		if err != nil || qty <= 0 {
			return nil, fault.Validation(fault.List{fault.New("quantity", "Ensure this value is greater than 0.")})
		}
		stock, _ := existing["stock"].(int)
		rec := existing.Clone()
		rec["stock"] = stock + qty
		rec["restocked_at"] = time.Now().UTC().Truncate(time.Second)
		return st.Update(ctx, Widget, rec)
	}
}

func inventory(st store.Store) permission.Resolver {
	return func(ctx context.Context, _ any, _ map[string]any) (any, error) {
		items, err := st.Query(Widget).Items(ctx)
		if err != nil {
			return nil, err
		}
		units, value := 0, 0
		for _, it := range items {
			rec := it.(store.Record)
			stock, _ := rec["stock"].(int)
			price, _ := rec["price"].(int)
			units += stock
			value += stock * price
		}
		return map[string]any{"widgets": len(items), "units": units, "value": value}, nil
	}
}
