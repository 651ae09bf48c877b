package common

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTrxNo(t *testing.T) {
	trx := GenerateTrxNo()
	require.Len(t, trx, trxNoLength)

	const validChars = "ABCDEF0123456789"
	for _, char := range trx {
		assert.True(t, strings.ContainsRune(validChars, char), "invalid character %q", char)
	}

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		no := GenerateTrxNo()
		_, dup := seen[no]
		require.False(t, dup, "duplicate transaction number %s", no)
		seen[no] = struct{}{}
	}
}

func TestPaginateResponse(t *testing.T) {
	data := []string{"item1", "item2"}

	res := PaginateResponse(data, 100, 1, 10, "")
	assert.Equal(t, "success", res.Message)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Equal(t, 10, res.LastPage)
	assert.Equal(t, 2, res.NextPage)
	assert.Equal(t, 0, res.PrevPage)
	assert.EqualValues(t, 100, res.Count)

	res = PaginateResponse(data, 100, 10, 10, "")
	assert.Equal(t, 0, res.NextPage, "last page has no next page")

	res = PaginateResponse(data, 100, 5, 10, "")
	assert.Equal(t, 4, res.PrevPage)
	assert.Equal(t, 6, res.NextPage)

	res = PaginateResponse(data, 101, 1, 10, "entries")
	assert.Equal(t, 11, res.LastPage)
	assert.Equal(t, "entries", res.Message)

	res = PaginateResponse(nil, 0, 1, 10, "")
	assert.Equal(t, 0, res.LastPage)
	assert.Equal(t, 0, res.NextPage)
}

func TestNewErrorResponse(t *testing.T) {
	res := NewErrorResponse("insufficient balance", "INSUFFICIENT_BALANCE", http.StatusUnprocessableEntity)
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Equal(t, "INSUFFICIENT_BALANCE", res.Code)
	body, err := json.Marshal(res)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"status":422,"message":"insufficient balance","success":false,"code":"INSUFFICIENT_BALANCE"}`, string(body))

	ok := NewSuccessResponse(map[string]int{"a": 1}, "done")
	assert.True(t, ok.Success)
	assert.Equal(t, http.StatusOK, ok.Status)
}
