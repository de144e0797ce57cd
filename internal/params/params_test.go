package params

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func formContext(t *testing.T, values url.Values) *gin.Context {
	t.Helper()

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("POST", "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req

	return c
}

func TestExtractRequiredString(t *testing.T) {
	c := formContext(t, url.Values{"name": {"  Release 1  "}})

	p, verr := Extract(c, Schema{
		{Name: "name", Type: String, Required: true},
	})
	require.Nil(t, verr)
	require.Equal(t, "Release 1", p.String("name"))
}

func TestExtractMissingRequiredString(t *testing.T) {
	c := formContext(t, url.Values{"name": {"   "}})

	_, verr := Extract(c, Schema{
		{Name: "name", Type: String, Required: true, Message: "Name is required."},
	})
	require.NotNil(t, verr)
	require.Equal(t, "name", verr.Field)
	require.Equal(t, "Name is required.", verr.Message)
}

func TestExtractIntStrict(t *testing.T) {
	// Malformed numeric input counts as missing, never as zero.
	c := formContext(t, url.Values{"project_id": {"abc"}})

	_, verr := Extract(c, Schema{
		{Name: "project_id", Type: Int, Required: true},
	})
	require.NotNil(t, verr)
	require.Equal(t, "project_id", verr.Field)
}

func TestExtractIntZeroIsAValue(t *testing.T) {
	c := formContext(t, url.Values{"status_id": {"0"}})

	p, verr := Extract(c, Schema{
		{Name: "status_id", Type: Int, Required: true},
	})
	require.Nil(t, verr)
	require.True(t, p.Has("status_id"))
	require.Equal(t, 0, p.Int("status_id"))
}

func TestExtractOptionalIntAbsent(t *testing.T) {
	c := formContext(t, url.Values{})

	p, verr := Extract(c, Schema{
		{Name: "assigned_to", Type: Int},
	})
	require.Nil(t, verr)
	require.False(t, p.Has("assigned_to"))

	_, ok := p.OptionalUint("assigned_to")
	require.False(t, ok)
}

func TestExtractOptionalIntDefault(t *testing.T) {
	c := formContext(t, url.Values{"priority_id": {"not-a-number"}})

	p, verr := Extract(c, Schema{
		{Name: "priority_id", Type: Int, Default: 3},
	})
	require.Nil(t, verr)
	require.Equal(t, 3, p.Int("priority_id"))
}

func TestExtractIntList(t *testing.T) {
	c := formContext(t, url.Values{"ids": {"3", "1", "2"}})

	p, verr := Extract(c, Schema{
		{Name: "ids", Type: IntList, Required: true},
	})
	require.Nil(t, verr)
	require.Equal(t, []uint64{3, 1, 2}, p.UintList("ids"))
}

func TestExtractIntListRejectsMalformedEntry(t *testing.T) {
	c := formContext(t, url.Values{"ids": {"1", "x", "3"}})

	_, verr := Extract(c, Schema{
		{Name: "ids", Type: IntList, Required: true},
	})
	require.NotNil(t, verr)
}

func TestExtractBool(t *testing.T) {
	c := formContext(t, url.Values{"notify": {"on"}})

	p, verr := Extract(c, Schema{
		{Name: "notify", Type: Bool},
	})
	require.Nil(t, verr)
	require.True(t, p.Bool("notify"))
}
