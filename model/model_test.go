package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "deps_snapshot", DepsSnapshot{}.TableName())
	assert.Equal(t, "deps_file", DepsFile{}.TableName())
}
