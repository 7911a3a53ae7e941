package cmd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	vgmerrors "github.com/angelospk/vgmdb-go/pkg/core/errors"
)

func TestLookupCommand_YAML(t *testing.T) {
	setupConfig(t, nil)
	session := new(MockSession)
	session.On("GetAlbum", mock.Anything, "79").Return(payload("79", "Chrono Cross OST"), nil).Once()

	out, _, err := executeCommand(t, session, "", "lookup", "https://vgmdb.net/album/79")

	require.NoError(t, err)
	session.AssertExpectations(t)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Chrono Cross OST", doc["title"])
	assert.Equal(t, "vgmdb-79", doc["externalId"])
	assert.Equal(t, "SSCX-79", doc["catalogNumber"])
	tracks, ok := doc["tracks"].([]interface{})
	require.True(t, ok, "tracks should be a list")
	assert.Len(t, tracks, 2)
}

func TestLookupCommand_Text(t *testing.T) {
	setupConfig(t, map[string]interface{}{"vgmdb.languages": "ja,en"})
	session := new(MockSession)
	session.On("GetAlbum", mock.Anything, "79").Return(payload("79", "Chrono Cross OST"), nil).Once()

	out, _, err := executeCommand(t, session, "", "lookup", "--output", "text", "vgmdb-79")

	require.NoError(t, err)
	assert.Contains(t, out, "vgmdb-79  Chrono Cross OST (JP)")
	assert.Contains(t, out, "1-01  時の傷痕")
	assert.Contains(t, out, "4:03")
	assert.Contains(t, out, "1-02  Time's Scar")
}

func TestLookupCommand_NotFound(t *testing.T) {
	setupConfig(t, nil)
	session := new(MockSession)
	session.On("GetAlbum", mock.Anything, "5").Return(nil, vgmerrors.ErrNotFound).Once()

	_, _, err := executeCommand(t, session, "", "lookup", "5")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `album "5" not found on VGMdb`)
}

func TestLookupCommand_InvalidID(t *testing.T) {
	setupConfig(t, nil)
	session := new(MockSession)

	_, _, err := executeCommand(t, session, "", "lookup", "not-an-album")

	require.Error(t, err)
	session.AssertNotCalled(t, "GetAlbum", mock.Anything, mock.Anything)
}
