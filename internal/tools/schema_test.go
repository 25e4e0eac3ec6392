package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchemaBasicTypes(t *testing.T) {
	type args struct {
		Path    string  `json:"path" jsonschema:"description=The file path,required"`
		Count   int     `json:"count" jsonschema:"description=How many"`
		Ratio   float64 `json:"ratio"`
		Enabled bool    `json:"enabled"`
		Tags    []string `json:"tags"`
	}

	schema := BuildSchema(args{})

	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	path := props["path"].(map[string]any)
	assert.Equal(t, "string", path["type"])
	assert.Equal(t, "The file path", path["description"])

	assert.Equal(t, "integer", props["count"].(map[string]any)["type"])
	assert.Equal(t, "number", props["ratio"].(map[string]any)["type"])
	assert.Equal(t, "boolean", props["enabled"].(map[string]any)["type"])

	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	assert.Equal(t, "string", tags["items"].(map[string]any)["type"])

	assert.Equal(t, []string{"path"}, schema["required"])
}

func TestBuildSchemaEnumAndSkips(t *testing.T) {
	type args struct {
		Method string `json:"method" jsonschema:"enum=GET|POST"`
		hidden string
		Omit   string `json:"-"`
	}
	_ = args{hidden: ""}

	schema := BuildSchema(args{})
	props := schema["properties"].(map[string]any)

	require.Len(t, props, 1)
	method := props["method"].(map[string]any)
	assert.Equal(t, []any{"GET", "POST"}, method["enum"])
}

func TestBuildSchemaNonStruct(t *testing.T) {
	schema := BuildSchema("not a struct")
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestBaseToolDefaults(t *testing.T) {
	b := &BaseTool{ToolName: "x", ToolDescription: "desc"}
	assert.Equal(t, "x", b.Name())
	assert.Equal(t, "desc", b.Description())
	params := b.Parameters()
	assert.Equal(t, "object", params["type"])
}
