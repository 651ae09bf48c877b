package ledger

import (
	"encoding/json"
	"testing"

	"ledger-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMetadataSurvivesJSON(t *testing.T) {
	ev := EventFromEntry(models.LedgerEntry{
		ID:       4,
		UserId:   1,
		CashType: models.CashReal,
		Category: string(CategoryDeposit),
		Amount:   dec("97"),
		Metadata: models.Metadata{"agent_cut": "1", "payer_user_id": 2},
	})

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded EntryCommitted
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, CategoryDeposit, decoded.Category)
	requireDecimal(t, "97", decoded.Amount)
	requireDecimal(t, "1", decoded.MetadataDecimal("agent_cut"))
	assert.Equal(t, 2, decoded.MetadataInt("payer_user_id"))
	assert.True(t, decoded.MetadataDecimal("missing").IsZero())
}
