package env

import (
	"testing"

	"github.com/ekisa-team/litegen/internal/envvar"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Production, Parse("production"))
	assert.Equal(t, Production, Parse(" PROD "))
	assert.Equal(t, Development, Parse("staging"))
	assert.Equal(t, Development, Parse(""))
}

func TestFromEnv(t *testing.T) {
	t.Setenv(envvar.LitegenEnv, "production")
	assert.True(t, FromEnv().IsProduction())

	t.Setenv(envvar.LitegenEnv, "")
	assert.False(t, FromEnv().IsProduction())
}
