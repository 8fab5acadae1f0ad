package global

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(NotFound("missing")))
	assert.Equal(t, http.StatusNotAcceptable, StatusOf(fmt.Errorf("item 2: %w", NotAcceptable("too many"))))
	assert.Equal(t, http.StatusBadRequest, StatusOf(BadRequest("bad")))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(Unprocessable("bad", nil)))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(Unauthorized("who")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestInternalKeepsUpstreamMessage(t *testing.T) {
	upstream := errors.New("card_declined")
	err := Internal("payment processor error", upstream)

	assert.Equal(t, "payment processor error: card_declined", err.Error())
	assert.ErrorIs(t, err, upstream)
}

func TestErrorResponseOmitsEmptyFields(t *testing.T) {
	assert.Nil(t, ErrorResponse("nope", nil).Data)
	assert.Equal(t, map[string]string{"password": "wrong"}, ErrorResponse("nope", map[string]string{"password": "wrong"}).Data)
}
