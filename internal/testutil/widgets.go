package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/crossbind/internal/dispatch"
	"github.com/roach88/crossbind/internal/ir"
)

// Library is a native library for tests and scenarios: a type model and
// the native implementation of every overload in it.
type Library struct {
	Name    string
	Model   *ir.Model
	Natives dispatch.NativeTable

	mu        sync.Mutex
	destroyed []string
}

// NewLibrary returns a fresh instance of a named sample library.
func NewLibrary(name string) (*Library, error) {
	switch name {
	case "widgets":
		return WidgetLibrary(), nil
	}
	return nil, fmt.Errorf("unknown library %q (available: %v)", name, Libraries())
}

// Libraries lists the sample library names.
func Libraries() []string {
	return []string{"widgets"}
}

// Destroy records the deletion of a native object. It is the tracker's
// destroy hook.
func (l *Library) Destroy(t ir.TypeID, native any) {
	name := "?"
	if o, ok := native.(objectLike); ok {
		name = o.base().Name
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.destroyed = append(l.destroyed, fmt.Sprintf("%s:%s", t, name))
}

// Destroyed lists the objects deleted through Destroy, in order.
func (l *Library) Destroyed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.destroyed...)
}

func (l *Library) def(callable string, ov ir.Overload, fn dispatch.NativeFunc) {
	if ov.Kind == "" {
		ov.Kind = ir.FuncFunction
	}
	id, err := l.Model.AddOverload(callable, ov)
	if err != nil {
		panic(err)
	}
	l.Natives[ir.MinimalSignature(l.Model.Overload(id))] = fn
}

// Object is the native base class of the widget library.
type Object struct {
	Name     string
	parent   objectLike
	children []objectLike
}

func (o *Object) base() *Object { return o }

type objectLike interface {
	base() *Object
}

// Widget is a native widget. It embeds Object.
type Widget struct {
	Object
	Width, Height int32
	Color         int64
	callback      ir.Value
}

// Point is a native value class.
type Point struct {
	X, Y int32
}

// WidgetLibrary builds the widget sample library.
//
//	Object(parent = nullptr)      parent heuristic
//	Widget : Object               virtual sizeHint, ownership directives
//	Point                         value class, implicit from int, operators
//	Color                         enum
//	describe / sum / format       free functions: overloads, containers, varargs
func WidgetLibrary() *Library {
	l := &Library{Name: "widgets", Model: ir.NewModel(), Natives: dispatch.NativeTable{}}
	for _, t := range []ir.TypeEntry{
		{ID: "Object", Kind: ir.KindObject, ParentTracked: true, HasVirtualDestructor: true},
		{ID: "Widget", Kind: ir.KindObject, Base: "Object", ParentTracked: true, HasVirtualMethods: true, HasVirtualDestructor: true},
		{ID: "Point", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"int"}},
		{ID: "Color", Kind: ir.KindEnum, EnumValues: []ir.EnumValue{{Name: "Red", Value: 0}, {Name: "Green", Value: 1}, {Name: "Blue", Value: 2}}},
		{ID: "std::vector<int>", Kind: ir.KindContainer, Container: ir.ContainerList, Instantiations: []ir.TypeID{"int"}},
	} {
		if err := l.Model.AddType(t); err != nil {
			panic(err)
		}
	}
	l.defineObject()
	l.defineWidget()
	l.definePoint()
	l.defineFunctions()
	return l
}

func self(c *dispatch.NativeCall) *Object {
	return c.Self.(objectLike).base()
}

func widget(c *dispatch.NativeCall) *Widget {
	return c.Self.(*Widget)
}

func parentArg(v any) objectLike {
	if v == nil {
		return nil
	}
	return v.(objectLike)
}

func (l *Library) defineObject() {
	parent := ir.Argument{Name: "parent", Type: "Object", Default: "nullptr"}

	l.def("Object.Object", ir.Overload{Kind: ir.FuncConstructor, Args: []ir.Argument{parent}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			o := &Object{Name: "object"}
			if p := parentArg(c.Args[0]); p != nil {
				attach(p, o)
			}
			return o, nil
		})
	l.def("Object.name", ir.Overload{Kind: ir.FuncMethod, Return: "std::string"},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			return self(c).Name, nil
		})
	l.def("Object.setName", ir.Overload{Kind: ir.FuncMethod, Args: []ir.Argument{{Name: "name", Type: "std::string"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			self(c).Name = c.Args[0].(string)
			return nil, nil
		})
	l.def("Object.parent", ir.Overload{Kind: ir.FuncMethod, Return: "Object", Accessor: true},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			if p := self(c).parent; p != nil {
				return p, nil
			}
			return nil, nil
		})
	l.def("Object.childCount", ir.Overload{Kind: ir.FuncMethod, Return: "int"},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			return int32(len(self(c).children)), nil
		})
}

// attach makes parent own child natively.
func attach(parent, child objectLike) {
	c := child.base()
	if c.parent != nil {
		detach(c.parent, child)
	}
	c.parent = parent
	p := parent.base()
	p.children = append(p.children, child)
}

func detach(parent, child objectLike) {
	p := parent.base()
	for i, c := range p.children {
		if c == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	child.base().parent = nil
}

func (l *Library) defineWidget() {
	parent := ir.Argument{Name: "parent", Type: "Object", Default: "nullptr"}

	l.def("Widget.Widget", ir.Overload{Kind: ir.FuncConstructor, Args: []ir.Argument{parent}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			w := &Widget{Object: Object{Name: "widget"}}
			if p := parentArg(c.Args[0]); p != nil {
				attach(p, w)
			}
			return w, nil
		})
	l.def("Widget.resize", ir.Overload{Kind: ir.FuncMethod, Args: []ir.Argument{
		{Name: "w", Type: "int"},
		{Name: "h", Type: "int", Default: "0"},
	}}, func(_ context.Context, c *dispatch.NativeCall) (any, error) {
		w := widget(c)
		w.Width, w.Height = c.Args[0].(int32), c.Args[1].(int32)
		return nil, nil
	})
	l.def("Widget.resize", ir.Overload{Kind: ir.FuncMethod, Args: []ir.Argument{{Name: "size", Type: "Point"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			w, p := widget(c), c.Args[0].(*Point)
			w.Width, w.Height = p.X, p.Y
			return nil, nil
		})
	l.def("Widget.size", ir.Overload{Kind: ir.FuncMethod, Return: "Point"},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			w := widget(c)
			return &Point{X: w.Width, Y: w.Height}, nil
		})
	l.def("Widget.area", ir.Overload{Kind: ir.FuncMethod, Return: "long"},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			w := widget(c)
			return int64(w.Width) * int64(w.Height), nil
		})
	l.def("Widget.sizeHint", ir.Overload{Kind: ir.FuncMethod, Return: "int", Virtual: true},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			return widget(c).Width, nil
		})
	l.def("Widget.addChild", ir.Overload{Kind: ir.FuncMethod, Args: []ir.Argument{
		{Name: "child", Type: "Widget", Owner: &ir.OwnerDirective{Action: ir.ActionAdd, Owner: ir.RoleSelf}},
	}}, func(_ context.Context, c *dispatch.NativeCall) (any, error) {
		if child := parentArg(c.Args[0]); child != nil {
			attach(c.Self.(objectLike), child)
		}
		return nil, nil
	})
	l.def("Widget.takeChild", ir.Overload{Kind: ir.FuncMethod, Args: []ir.Argument{
		{Name: "child", Type: "Widget", Owner: &ir.OwnerDirective{Action: ir.ActionRemove, Owner: ir.RoleSelf}},
	}}, func(_ context.Context, c *dispatch.NativeCall) (any, error) {
		if child := parentArg(c.Args[0]); child != nil {
			detach(c.Self.(objectLike), child)
		}
		return nil, nil
	})
	l.def("Widget.createChild", ir.Overload{Kind: ir.FuncMethod, Return: "Widget"},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			child := &Widget{Object: Object{Name: "child"}}
			attach(c.Self.(objectLike), child)
			return child, nil
		})
	l.def("Widget.setColor", ir.Overload{Kind: ir.FuncMethod, Args: []ir.Argument{{Name: "color", Type: "Color"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			widget(c).Color = c.Args[0].(int64)
			return nil, nil
		})
	l.def("Widget.color", ir.Overload{Kind: ir.FuncMethod, Return: "Color"},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			return widget(c).Color, nil
		})
	l.def("Widget.setCallback", ir.Overload{Kind: ir.FuncMethod, Args: []ir.Argument{
		{Name: "callback", Type: ir.TypeAny, RefCount: &ir.RefCountDirective{Action: ir.ActionSet}},
	}}, func(_ context.Context, c *dispatch.NativeCall) (any, error) {
		widget(c).callback = c.Args[0].(ir.Value)
		return nil, nil
	})
	l.def("Widget.fireCallback", ir.Overload{Kind: ir.FuncMethod, Return: ir.TypeAny},
		func(ctx context.Context, c *dispatch.NativeCall) (any, error) {
			fn, ok := widget(c).callback.(ir.Func)
			if !ok {
				return nil, fmt.Errorf("no callback set")
			}
			return fn(ctx, nil)
		})
	l.def("Widget.wait", ir.Overload{Kind: ir.FuncMethod, AllowThreads: true, Args: []ir.Argument{{Name: "ms", Type: "int"}}},
		func(ctx context.Context, c *dispatch.NativeCall) (any, error) {
			return nil, ctx.Err()
		})
}

func (l *Library) definePoint() {
	l.def("Point.Point", ir.Overload{Kind: ir.FuncConstructor},
		func(context.Context, *dispatch.NativeCall) (any, error) {
			return &Point{}, nil
		})
	l.def("Point.Point", ir.Overload{Kind: ir.FuncConstructor, Args: []ir.Argument{{Name: "x", Type: "int"}, {Name: "y", Type: "int"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			return &Point{X: c.Args[0].(int32), Y: c.Args[1].(int32)}, nil
		})
	l.def("Point.Point", ir.Overload{Kind: ir.FuncConstructor, Args: []ir.Argument{{Name: "n", Type: "int"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			n := c.Args[0].(int32)
			return &Point{X: n, Y: n}, nil
		})
	l.def("Point.x", ir.Overload{Kind: ir.FuncMethod, Return: "int"},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			return c.Self.(*Point).X, nil
		})
	l.def("Point.y", ir.Overload{Kind: ir.FuncMethod, Return: "int"},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			return c.Self.(*Point).Y, nil
		})
	l.def("Point.__add__", ir.Overload{Kind: ir.FuncOperator, Return: "Point", Args: []ir.Argument{{Name: "other", Type: "Point"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			a, b := c.Self.(*Point), c.Args[0].(*Point)
			return &Point{X: a.X + b.X, Y: a.Y + b.Y}, nil
		})
	l.def("Point.__mul__", ir.Overload{Kind: ir.FuncOperator, Return: "Point", Args: []ir.Argument{{Name: "k", Type: "int"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			p, k := c.Self.(*Point), c.Args[0].(int32)
			return &Point{X: p.X * k, Y: p.Y * k}, nil
		})
	l.def("Point.__mul__", ir.Overload{Kind: ir.FuncOperator, Reverse: true, Return: "Point", Args: []ir.Argument{{Name: "k", Type: "int"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			p, k := c.Self.(*Point), c.Args[0].(int32)
			return &Point{X: k * p.X, Y: k * p.Y}, nil
		})
}

func (l *Library) defineFunctions() {
	for _, t := range []ir.TypeID{"int", "double", "std::string"} {
		name := string(t)
		l.def("describe", ir.Overload{Return: "std::string", Args: []ir.Argument{{Name: "v", Type: t}}},
			func(context.Context, *dispatch.NativeCall) (any, error) {
				return name, nil
			})
	}
	l.def("sum", ir.Overload{Return: "long", Args: []ir.Argument{{Name: "values", Type: "std::vector<int>"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			var total int64
			for _, v := range c.Args[0].([]any) {
				total += int64(v.(int32))
			}
			return total, nil
		})
	l.def("format", ir.Overload{Return: "std::string", Args: []ir.Argument{{Name: "pattern", Type: "std::string"}, {Type: ir.TypeVarargs}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			return fmt.Sprintf("%s/%d", c.Args[0].(string), len(c.Args)-1), nil
		})
	l.def("retain", ir.Overload{Args: []ir.Argument{{Name: "obj", Type: "Object", Ownership: ir.OwnershipToNative}}},
		func(context.Context, *dispatch.NativeCall) (any, error) {
			return nil, nil
		})
	l.def("createWidget", ir.Overload{Return: "Widget", ReturnOwnership: ir.OwnershipToScript, Args: []ir.Argument{{Name: "name", Type: "std::string"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			return &Widget{Object: Object{Name: c.Args[0].(string)}}, nil
		})
	l.def("divide", ir.Overload{Return: "int", Args: []ir.Argument{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}}},
		func(_ context.Context, c *dispatch.NativeCall) (any, error) {
			return c.Args[0].(int32) / c.Args[1].(int32), nil
		})
}
