package inventory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInventory = `networks:
  - code: AU
    stations:
      - code: WRAB
        latitude: -19.934
        longitude: 134.360
        elevation_m: 366.0
      - code: FITZ
        latitude: -18.0982
        longitude: 125.6403
  - code: IU
    stations:
      - code: CTAO
        latitude: -20.0882
        longitude: 146.2545
        elevation_m: 357.0
`

func TestLoad(t *testing.T) {
	inv, err := Load(strings.NewReader(sampleInventory))
	require.NoError(t, err)
	assert.Equal(t, 3, inv.Len())

	t.Run("lookup hit", func(t *testing.T) {
		sta, ok := inv.Lookup("AU", "WRAB")
		require.True(t, ok)
		assert.Equal(t, "AU", sta.Network)
		assert.Equal(t, -19.934, sta.Latitude)
		assert.Equal(t, 134.360, sta.Longitude)
		assert.Equal(t, 366.0, sta.ElevationM)
	})

	t.Run("elevation defaults to zero", func(t *testing.T) {
		sta, ok := inv.Lookup("AU", "FITZ")
		require.True(t, ok)
		assert.Equal(t, 0.0, sta.ElevationM)
	})

	t.Run("lookup cares about the network", func(t *testing.T) {
		_, ok := inv.Lookup("AU", "CTAO")
		assert.False(t, ok)

		sta, ok := inv.Lookup("IU", "CTAO")
		require.True(t, ok)
		assert.Equal(t, -20.0882, sta.Latitude)
	})

	t.Run("lookup miss", func(t *testing.T) {
		_, ok := inv.Lookup("AU", "NOPE")
		assert.False(t, ok)
	})
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	t.Run("station without coordinates", func(t *testing.T) {
		in := `networks:
  - code: AU
    stations:
      - code: WRAB
`
		_, err := Load(strings.NewReader(in))
		assert.ErrorContains(t, err, "AU.WRAB has no coordinates")
	})

	t.Run("station without code", func(t *testing.T) {
		in := `networks:
  - code: AU
    stations:
      - latitude: -19.0
        longitude: 134.0
`
		_, err := Load(strings.NewReader(in))
		assert.ErrorContains(t, err, "station with no code")
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		in := `networks:
  - code: AU
    colour: blue
`
		_, err := Load(strings.NewReader(in))
		assert.Error(t, err)
	})

	t.Run("last duplicate wins", func(t *testing.T) {
		in := `networks:
  - code: AU
    stations:
      - code: WRAB
        latitude: -19.0
        longitude: 134.0
      - code: WRAB
        latitude: -19.5
        longitude: 134.5
`
		inv, err := Load(strings.NewReader(in))
		require.NoError(t, err)
		sta, ok := inv.Lookup("AU", "WRAB")
		require.True(t, ok)
		assert.Equal(t, -19.5, sta.Latitude)
	})
}
