package record

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tally/internal/value"
)

func TestSetDoesNotAliasInput(t *testing.T) {
	r := New("7", value.Object{"name": value.String("Mug")})

	patched := Set("name", value.String("X"))(r)

	assert.Equal(t, value.String("Mug"), r.Get("name"))
	assert.Equal(t, value.String("X"), patched.Get("name"))
}

func TestComposeOrder(t *testing.T) {
	r := New("1", value.Object{"qty": value.Int(1)})
	double := func(r Record) Record {
		return Set("qty", r.Get("qty").(value.Int)*2)(r)
	}
	inc := func(r Record) Record {
		return Set("qty", r.Get("qty").(value.Int)+1)(r)
	}

	// (1+1)*2 = 4, not 1*2+1 = 3
	assert.Equal(t, value.Int(4), Compose(inc, double)(r).Get("qty"))
}

func TestUnsetAndMerge(t *testing.T) {
	r := New("1", value.Object{"a": value.Int(1), "b": value.Int(2)})

	out := Compose(Unset("a"), Merge(value.Object{"c": value.Bool(true)}))(r)
	assert.Equal(t, value.Object{"b": value.Int(2), "c": value.Bool(true)}, out.Fields)
}

func TestApplyRejectsIDChange(t *testing.T) {
	var bad Patch = func(r Record) Record {
		r.ID = "other"
		return r
	}
	_, err := bad.Apply(New("1", nil))
	assert.Error(t, err)
}

func TestGetMissingIsNull(t *testing.T) {
	r := New("1", nil)
	assert.Equal(t, value.Null{}, r.Get("missing"))
	assert.Equal(t, "", r.Text("missing"))
}

func TestPageHasMore(t *testing.T) {
	assert.True(t, Page{Items: make([]Record, 15), TotalCount: 40, Offset: 15}.HasMore())
	assert.False(t, Page{Items: make([]Record, 10), TotalCount: 40, Offset: 30}.HasMore())
}
