package isolation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanForSentinelLeak_FindsLeak(t *testing.T) {
	p := NewCredentialProxy()
	p.AddMapping("api_key", "API_KEY")

	leaked := ScanForSentinelLeak(p, []byte("dumped env: API_KEY=__CRUSTYCLAW_SENTINEL_api_key__"))
	assert.Equal(t, []string{"api_key"}, leaked)
}

func TestScanForSentinelLeak_NoProxy(t *testing.T) {
	assert.Nil(t, ScanForSentinelLeak(nil, []byte("anything")))
}

func TestScanForSentinelLeak_Clean(t *testing.T) {
	p := NewCredentialProxy()
	p.AddMapping("api_key", "API_KEY")
	assert.Empty(t, ScanForSentinelLeak(p, []byte("nothing interesting here")))
}
