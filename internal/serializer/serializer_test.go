package serializer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/relaygraph/internal/fault"
	"github.com/hanpama/relaygraph/internal/request"
	"github.com/hanpama/relaygraph/internal/store"
	"github.com/hanpama/relaygraph/internal/store/memstore"
)

var widget = &store.Model{
	Name: "Widget",
	Attributes: []store.Attribute{
		{Name: "id", Kind: store.KindInt},
		{Name: "name", Kind: store.KindString},
		{Name: "price", Kind: store.KindInt},
		{Name: "kind", Kind: store.KindString},
		{Name: "manual", Kind: store.KindString},
	},
}

func widgetSerializer() *Serializer {
	return &Serializer{
		Name:  "WidgetSerializer",
		Model: widget,
		Fields: []*Field{
			{Name: "id", Kind: store.KindInt, ReadOnly: true},
			{Name: "name", Kind: store.KindString, Required: true, Rules: "min=2,max=32"},
			{Name: "price", Kind: store.KindInt, Required: true, Rules: "gte=0"},
			{Name: "kind", Kind: store.KindString, Default: "gear", Choices: []Choice{
				{Value: "gear", Label: "Gear"},
				{Value: "spring-coil", Label: "Spring coil"},
			}},
			{Name: "manual", Kind: store.KindString},
		},
	}
}

func fieldErrors(t *testing.T, err error) fault.List {
	t.Helper()
	require.True(t, errors.Is(err, fault.ErrValidation), "expected validation error, got %v", err)
	l, ok := fault.AsList(err)
	require.True(t, ok)
	return l
}

func TestCreateRequiresFields(t *testing.T) {
	st := memstore.New()
	_, err := widgetSerializer().Save(context.Background(), st, map[string]any{"name": "widget"}, nil, false)
	errs := fieldErrors(t, err)
	want := fault.List{fault.New("price", "This field is required.")}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 0, st.Len(widget))
}

func TestCreatePersists(t *testing.T) {
	st := memstore.New()
	rec, err := widgetSerializer().Save(context.Background(), st, map[string]any{
		"name":   "sprocket",
		"price":  float64(12),
		"kind":   "SPRING_COIL",
		"id":     99,
		"manual": &request.File{Filename: "sprocket.pdf"},
		"extra":  "ignored",
	}, nil, false)
	require.NoError(t, err)
	want := store.Record{"id": 1, "name": "sprocket", "price": 12, "kind": "spring-coil", "manual": "sprocket.pdf"}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRulesAndChoices(t *testing.T) {
	st := memstore.New()
	_, err := widgetSerializer().Save(context.Background(), st, map[string]any{
		"name":  "x",
		"price": -1,
		"kind":  "lever",
	}, nil, false)
	errs := fieldErrors(t, err)
	require.Equal(t, []string{"name", "price", "kind"}, errs.Fields())
	e, _ := errs.ForField("name")
	require.Equal(t, []string{"Ensure this value is at least 2."}, e.Messages)
	e, _ = errs.ForField("kind")
	require.Equal(t, []string{`"lever" is not a valid choice.`}, e.Messages)
}

func TestPartialUpdateKeepsValues(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	s := widgetSerializer()
	rec, err := s.Save(ctx, st, map[string]any{"name": "sprocket", "price": 3}, nil, false)
	require.NoError(t, err)
	require.Equal(t, "gear", rec["kind"])

	updated, err := s.Save(ctx, st, map[string]any{"price": 5}, rec, true)
	require.NoError(t, err)
	require.Equal(t, "sprocket", updated["name"])
	require.Equal(t, 5, updated["price"])

	got, err := st.Lookup(ctx, widget, "id", rec["id"])
	require.NoError(t, err)
	require.Equal(t, 5, got["price"])
}

func TestObjectValidation(t *testing.T) {
	s := widgetSerializer()
	s.Validate = func(_ context.Context, rec store.Record) fault.List {
		if rec["name"] == "forbidden" {
			return fault.List{fault.New("", "name is reserved")}
		}
		return nil
	}
	_, err := s.Save(context.Background(), memstore.New(), map[string]any{"name": "forbidden", "price": 1}, nil, false)
	errs := fieldErrors(t, err)
	require.Nil(t, errs[0].Field)
}

func TestEnumName(t *testing.T) {
	for in, want := range map[any]string{
		"gear":        "GEAR",
		"spring-coil": "SPRING_COIL",
		"a b  c":      "A_B_C",
		1:             "A_1",
		"_x":          "_X",
	} {
		require.Equal(t, want, EnumName(in), "%v", in)
	}
}

func TestMalformedIntegers(t *testing.T) {
	for _, price := range []string{"42abc", "7 8", "12.9", ""} {
		t.Run(price, func(t *testing.T) {
			st := memstore.New()
			_, err := widgetSerializer().Save(context.Background(), st, map[string]any{"name": "widget", "price": price}, nil, false)
			want := fault.List{fault.New("price", "A valid integer is required.")}
			if diff := cmp.Diff(want, fieldErrors(t, err)); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, 0, st.Len(widget))
		})
	}

	rec, err := widgetSerializer().Save(context.Background(), memstore.New(), map[string]any{"name": "widget", "price": " 12 "}, nil, false)
	require.NoError(t, err)
	require.Equal(t, 12, rec["price"])
}
