package anytensor

import (
	"math"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

const testPrecision = 1e-3

func TestBroadcastOutput(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	col := New(anydiff.NewConst(MakeVector(c, []float64{1, 2})), 2, 1)
	row := New(anydiff.NewConst(MakeVector(c, []float64{10, 20, 30})), 3)
	res := Broadcast(col, row)
	for _, x := range res {
		if !reflect.DeepEqual(x.Shape, []int{2, 3}) {
			t.Fatalf("bad shape: %v", x.Shape)
		}
	}
	expected := [][]float64{
		{1, 1, 1, 2, 2, 2},
		{10, 20, 30, 10, 20, 30},
	}
	for i, x := range res {
		if actual := Floats(x.Res.Output()); !reflect.DeepEqual(actual, expected[i]) {
			t.Errorf("tensor %d: expected %v but got %v", i, expected[i], actual)
		}
	}
}

func TestBroadcastBatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	m := New(anydiff.NewConst(MakeVector(c, []float64{1, 2, 3, 4})), 2, 2)
	actual := Floats(BroadcastTo(m, 3, 2, 2).Res.Output())
	expected := []float64{1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}

func TestBroadcastMismatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	m := New(anydiff.NewConst(c.MakeVector(6)), 2, 3)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	BroadcastTo(m, 3, 3)
}

func TestBroadcastGrad(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v1 := randomVar(c, 3)
	v2 := randomVar(c, 4)
	ch := anydifftest.ResChecker{
		F: func() anydiff.Res {
			b := Broadcast(New(v1, 3, 1, 1), New(v2, 2, 2))
			return Add(b[0], b[1]).Res
		},
		V:     []*anydiff.Var{v1, v2},
		Prec:  testPrecision,
		Delta: testPrecision,
	}
	ch.FullCheck(t)
}

func TestAddMismatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	t1 := New(anydiff.NewConst(c.MakeVector(6)), 2, 3)
	t2 := New(anydiff.NewConst(c.MakeVector(6)), 3, 2)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Add(t1, t2)
}

func TestSub(t *testing.T) {
	c := anyvec32.CurrentCreator()
	t1 := New(anydiff.NewConst(MakeVector(c, []float64{3, 2})), 2)
	t2 := New(anydiff.NewConst(MakeVector(c, []float64{1, 5})), 2)
	actual := Floats(Sub(t1, t2).Res.Output())
	if !reflect.DeepEqual(actual, []float64{2, -3}) {
		t.Errorf("unexpected output: %v", actual)
	}
}

func TestLogSumExpOutput(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	vals := []float64{
		1, 2, 3,
		-1, 0.5, 1000,
	}
	x := New(anydiff.NewConst(MakeVector(c, vals)), 2, 3)

	actual := Floats(LogSumExp(x, 1).Res.Output())
	expected := []float64{
		math.Log(math.Exp(1) + math.Exp(2) + math.Exp(3)),
		1000,
	}
	for i, a := range actual {
		if math.Abs(a-expected[i]) > 1e-8 {
			t.Errorf("axis 1, output %d: expected %f but got %f", i, expected[i], a)
		}
	}

	actual = Floats(LogSumExp(x, 0).Res.Output())
	expected = []float64{
		math.Log(math.Exp(1) + math.Exp(-1)),
		math.Log(math.Exp(2) + math.Exp(0.5)),
		1000,
	}
	for i, a := range actual {
		if math.Abs(a-expected[i]) > 1e-8 {
			t.Errorf("axis 0, output %d: expected %f but got %f", i, expected[i], a)
		}
	}
}

func TestLogSumExpNegInf(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := anydiff.NewVar(MakeVector(c, []float64{math.Inf(-1), math.Inf(-1), 0, math.Inf(-1)}))
	res := LogSumExp(New(v, 2, 2), 1).Res
	out := Floats(res.Output())
	if !math.IsInf(out[0], -1) || out[1] != 0 {
		t.Fatalf("unexpected output: %v", out)
	}
	grad := anydiff.NewGrad(v)
	res.Propagate(MakeVector(c, []float64{1, 1}), grad)
	actual := Floats(grad[v])
	if !reflect.DeepEqual(actual, []float64{0, 0, 1, 0}) {
		t.Errorf("unexpected gradient: %v", actual)
	}
}

func TestLogSumExpGrad(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := randomVar(c, 24)
	for axis := 0; axis < 3; axis++ {
		ch := anydifftest.ResChecker{
			F: func() anydiff.Res {
				return LogSumExp(New(v, 2, 3, 4), axis).Res
			},
			V:     []*anydiff.Var{v},
			Prec:  testPrecision,
			Delta: testPrecision,
		}
		ch.FullCheck(t)
	}
}

func TestMaxArgmax(t *testing.T) {
	c := anyvec32.CurrentCreator()
	vals := []float64{
		1, 5,
		3, 5,
		2, 0,

		7, 7,
		7, 1,
		-1, 8,
	}
	x := New(anydiff.NewConst(MakeVector(c, vals)), 2, 3, 2)

	maxes := Floats(Max(x, 1).Res.Output())
	if !reflect.DeepEqual(maxes, []float64{3, 5, 7, 8}) {
		t.Errorf("unexpected maxes: %v", maxes)
	}
	indices := Argmax(x, 1)
	if !reflect.DeepEqual(indices, []int{1, 0, 0, 2}) {
		t.Errorf("unexpected indices: %v", indices)
	}

	indices = Argmax(x, 2)
	if !reflect.DeepEqual(indices, []int{1, 1, 0, 0, 0, 1}) {
		t.Errorf("unexpected last-axis indices: %v", indices)
	}
}

func TestArgmaxTies(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	x := New(anydiff.NewConst(MakeVector(c, []float64{2, 2, 2, 1, 4, 4})), 2, 3)
	for i := 0; i < 10; i++ {
		if indices := Argmax(x, 1); !reflect.DeepEqual(indices, []int{0, 1}) {
			t.Fatalf("unexpected indices: %v", indices)
		}
	}
}

func TestMaxGrad(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := randomVar(c, 12)
	ch := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return Max(New(v, 3, 4), 1).Res
		},
		V:     []*anydiff.Var{v},
		Prec:  testPrecision,
		Delta: testPrecision,
	}
	ch.FullCheck(t)
}

func TestSelectItem(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := anydiff.NewVar(MakeVector(c, []float64{1, 2, 3, 4, 5, 6}))
	res := SelectItem(New(v, 2, 3), []int{2, 0})
	if actual := Floats(res.Res.Output()); !reflect.DeepEqual(actual, []float64{3, 4}) {
		t.Errorf("unexpected output: %v", actual)
	}
	ch := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return SelectItem(New(v, 2, 3), []int{1, 1}).Res
		},
		V:     []*anydiff.Var{v},
		Prec:  testPrecision,
		Delta: testPrecision,
	}
	ch.FullCheck(t)
}

func TestSelectItemRange(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	x := New(anydiff.NewConst(c.MakeVector(6)), 2, 3)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	SelectItem(x, []int{0, 3})
}

func TestEmbedID(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := anydiff.NewVar(MakeVector(c, []float64{1, 2, 3, 4, 5, 6}))
	res := EmbedID([]int{2, 0, 2}, New(v, 3, 2))
	if !reflect.DeepEqual(res.Shape, []int{3, 2}) {
		t.Errorf("unexpected shape: %v", res.Shape)
	}
	if actual := Floats(res.Res.Output()); !reflect.DeepEqual(actual, []float64{5, 6, 1, 2, 5, 6}) {
		t.Errorf("unexpected output: %v", actual)
	}

	grad := anydiff.NewGrad(v)
	res.Res.Propagate(MakeVector(c, []float64{1, 2, 3, 4, 5, 6}), grad)
	if actual := Floats(grad[v]); !reflect.DeepEqual(actual, []float64{3, 4, 0, 0, 6, 8}) {
		t.Errorf("unexpected gradient: %v", actual)
	}
}

func TestReshapeMismatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	x := New(anydiff.NewConst(c.MakeVector(6)), 2, 3)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Reshape(x, 4, 2)
}

func randomVar(c anyvec.Creator, n int) *anydiff.Var {
	v := c.MakeVector(n)
	anyvec.Rand(v, anyvec.Normal, nil)
	return anydiff.NewVar(v)
}
