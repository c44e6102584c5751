package lgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSourceLoc_InternsSamePathToSameHandle(t *testing.T) {
	a := NewSourceLoc("pkg/file_unique_a.go", 10)
	b := NewSourceLoc("pkg/file_unique_a.go", 20)
	assert.Equal(t, a.file, b.file)
	assert.NotEqual(t, a.line, b.line)
}

func TestFileForHandle_ResolvesInternedPath(t *testing.T) {
	loc := NewSourceLoc("pkg/file_unique_b.go", 1)
	assert.Equal(t, "pkg/file_unique_b.go", fileForHandle(loc.file))
}

func TestFileForHandle_UnknownHandleReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", fileForHandle(0))
	assert.Equal(t, "", fileForHandle(999999))
}
