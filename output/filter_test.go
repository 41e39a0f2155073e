package output

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcr/ccdb/config"
)

func TestFilterExistingSources(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/src/main.c", []byte("int main;"), 0644))

	filter := NewFilter(fs, config.ContentFilter{IncludeOnlyExistingSources: true})
	kept := filter.Apply([]Entry{
		entry("/proj", "src/main.c", "", "gcc", "-c", "src/main.c"),
		entry("/proj", "src/gone.c", "", "gcc", "-c", "src/gone.c"),
	})

	require.Len(t, kept, 1)
	assert.Equal(t, "src/main.c", kept[0].File)
}

func TestFilterExcludePaths(t *testing.T) {
	filter := NewFilter(afero.NewMemMapFs(), config.ContentFilter{
		ExcludePaths: []string{"/proj/third_party"},
	})

	assert.True(t, filter.Keep(entry("/proj", "src/main.c", "", "gcc", "-c", "src/main.c")))
	assert.False(t, filter.Keep(entry("/proj", "third_party/lib.c", "", "gcc", "-c", "third_party/lib.c")))
	assert.False(t, filter.Keep(entry("/elsewhere", "/proj/third_party/x.c", "", "gcc", "-c", "/proj/third_party/x.c")))
}

func TestFilterIncludePaths(t *testing.T) {
	filter := NewFilter(afero.NewMemMapFs(), config.ContentFilter{
		IncludePaths: []string{"/proj/src"},
	})

	assert.True(t, filter.Keep(entry("/proj", "src/main.c", "", "gcc", "-c", "src/main.c")))
	assert.False(t, filter.Keep(entry("/proj", "vendor/dep.c", "", "gcc", "-c", "vendor/dep.c")))
}

func TestFilterExcludeWinsOverInclude(t *testing.T) {
	filter := NewFilter(afero.NewMemMapFs(), config.ContentFilter{
		IncludePaths: []string{"/proj"},
		ExcludePaths: []string{"/proj/generated"},
	})

	assert.True(t, filter.Keep(entry("/proj", "main.c", "", "gcc", "-c", "main.c")))
	assert.False(t, filter.Keep(entry("/proj", "generated/pb.c", "", "gcc", "-c", "generated/pb.c")))
}

func TestFilterPrefixIsPathAware(t *testing.T) {
	filter := NewFilter(afero.NewMemMapFs(), config.ContentFilter{
		ExcludePaths: []string{"/proj/lib"},
	})

	// A sibling directory sharing the prefix string must not match.
	assert.True(t, filter.Keep(entry("/", "/proj/library/a.c", "", "gcc", "-c", "/proj/library/a.c")))
	assert.False(t, filter.Keep(entry("/", "/proj/lib/a.c", "", "gcc", "-c", "/proj/lib/a.c")))
}
