package util

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSerialNumber(t *testing.T) {
	assert := require.New(t)

	for i := 0; i < 100; i++ {
		serial := GenerateSerialNumber("SPDK")
		assert.True(strings.HasPrefix(serial, "SPDK"))
		n, err := strconv.ParseInt(strings.TrimPrefix(serial, "SPDK"), 10, 64)
		assert.Nil(err)
		assert.True(n >= serialNumberMin && n <= serialNumberMax, serial)
	}
}

func TestUUID(t *testing.T) {
	assert := require.New(t)

	id := UUID()
	canonical, err := ValidateUUID(strings.ToUpper(id))
	assert.Nil(err)
	assert.Equal(id, canonical)

	_, err = ValidateUUID("not-a-uuid")
	assert.NotNil(err)
}

func TestCompareVersions(t *testing.T) {
	tests := map[string]struct {
		a, b    string
		want    int
		wantErr bool
	}{
		"equal":         {a: "1.2.3", b: "1.2.3", want: 0},
		"older minor":   {a: "1.1.9", b: "1.2.0", want: -1},
		"newer major":   {a: "2.0.0", b: "1.9.9", want: 1},
		"numeric order": {a: "1.10.0", b: "1.9.0", want: 1},
		"v prefix":      {a: "v1.0.0", b: "1.0.0", want: 0},
		"leading zero":  {a: "1.01.0", b: "1.1.0", want: 0},
		"negative":      {a: "1.-1.0", b: "1.0.0", wantErr: true},
		"two parts":     {a: "1.2", b: "1.2.0", wantErr: true},
		"not numeric":   {a: "1.x.0", b: "1.2.0", wantErr: true},
	}
	for name, tt := range tests {
		got, err := CompareVersions(tt.a, tt.b)
		if tt.wantErr {
			require.Error(t, err, name)
			continue
		}
		require.NoError(t, err, name)
		require.Equal(t, tt.want, got, name)
	}
}
