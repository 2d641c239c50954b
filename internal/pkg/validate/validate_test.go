package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type handleReq struct {
	Username string `validate:"required,handle"`
}

func TestStruct_Handle(t *testing.T) {
	assert.NoError(t, Struct(handleReq{Username: "alice_01-x"}))

	err := Struct(handleReq{Username: "alice smith"})
	assert.ErrorContains(t, err, "field 'Username' failed 'handle'")
}

func TestStruct_Required(t *testing.T) {
	err := Struct(handleReq{})
	assert.ErrorContains(t, err, "failed 'required'")
}

func TestVar_Email(t *testing.T) {
	assert.NoError(t, Var("a@b.com", "required,email"))
	assert.Error(t, Var("not-an-email", "required,email"))
}
