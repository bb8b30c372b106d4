package ghio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Equal(t, "gsm_cell_id", Name(GsmCellID))
	assert.Equal(t, "signal_quality", Name(SignalQuality))
	assert.Equal(t, "operator_code", Name(OperatorCode))
	assert.Equal(t, "239", Name(239))
}

func TestSynthetic(t *testing.T) {
	assert.True(t, Synthetic(200))
	assert.True(t, Synthetic(202))
	assert.False(t, Synthetic(1))
}
