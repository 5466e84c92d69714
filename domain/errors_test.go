package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, KindUnknown, KindOf(base))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindValidation, KindOf(NewError(KindValidation, "op", base)))

	wrapped := fmt.Errorf("generate: %w", NewError(KindAuthorization, "invoke", base))
	assert.Equal(t, KindAuthorization, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, base)
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "invoke: boom", NewError(KindUnknown, "invoke", errors.New("boom")).Error())
	assert.Equal(t, "boom", NewError(KindUnknown, "", errors.New("boom")).Error())
	assert.Equal(t, "authorization", KindAuthorization.String())
}

func TestCollect(t *testing.T) {
	seq := func(yield func(Fragment, error) bool) {
		for _, s := range []string{"He", "llo ", "there"} {
			if !yield(Fragment{Text: s}, nil) {
				return
			}
		}
	}
	text, err := Collect(seq)
	assert.NoError(t, err)
	assert.Equal(t, "Hello there", text)
}

func TestCollect_StopsAtError(t *testing.T) {
	boom := errors.New("reset")
	seq := func(yield func(Fragment, error) bool) {
		if !yield(Fragment{Text: "partial"}, nil) {
			return
		}
		yield(Fragment{}, boom)
	}
	text, err := Collect(seq)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", text)
}
