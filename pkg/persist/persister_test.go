package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manifestState struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

func TestPersister_SaveLoad(t *testing.T) {
	t.Parallel()

	for _, codec := range []Codec{NewJSONCodec(), NewGobCodec()} {
		t.Run(codec.Extension(), func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			p := NewPersister[manifestState]("manifest", codec)

			require.NoError(t, p.Save(dir, &manifestState{Label: "hello", Value: 42}))
			assert.Equal(t, filepath.Join(dir, "manifest"+codec.Extension()), p.Path(dir))

			restored, err := p.Load(dir)
			require.NoError(t, err)
			assert.Equal(t, manifestState{Label: "hello", Value: 42}, *restored)
		})
	}
}

func TestPersister_LoadMissing(t *testing.T) {
	t.Parallel()

	p := NewPersister[manifestState]("nothing", NewJSONCodec())

	_, err := p.Load(t.TempDir())
	require.Error(t, err)
}
