// Package respond formats mutation results in the dual mode every mutating
// endpoint follows: a JSON envelope for programmatic (AJAX) callers, or a
// one-shot flash message plus redirect for conventional form submissions.
package respond

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/issue-tracker-api/pkg/logger"
)

// Envelope is the machine-readable response shape.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// IsAJAX reports whether the caller identified itself as programmatic,
// either via the X-Requested-With header or an ajax form field.
func IsAJAX(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return c.PostForm("ajax") == "1" || c.Query("ajax") == "1"
}

// OK reports a successful mutation. AJAX callers get the JSON envelope;
// others get a flash message and a redirect to redirectTo.
func OK(c *gin.Context, message string, data interface{}, redirectTo string) {
	if IsAJAX(c) {
		c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
		return
	}
	flashAndRedirect(c, message, redirectTo)
}

// Fail reports a failed mutation with the same status code as success;
// success:false carries the outcome. Messages stay generic so authorization
// failures leak nothing.
func Fail(c *gin.Context, message string, redirectTo string) {
	if IsAJAX(c) {
		c.JSON(http.StatusOK, Envelope{Success: false, Message: message})
		return
	}
	flashAndRedirect(c, message, redirectTo)
}

// InvalidMethod rejects a non-POST request to a mutating endpoint.
func InvalidMethod(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, Envelope{Success: false, Message: "Invalid request method."})
}

// LoginRequired rejects an unauthenticated request to a protected endpoint.
func LoginRequired(c *gin.Context) {
	if IsAJAX(c) {
		c.JSON(http.StatusUnauthorized, Envelope{Success: false, Message: "Please log in to continue."})
		return
	}
	flashAndRedirect(c, "Please log in to continue.", "/login")
}

func flashAndRedirect(c *gin.Context, message, redirectTo string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	// A failed session save still redirects; the flash is best-effort.
	_ = session.Save()

	if redirectTo == "" {
		redirectTo = "/"
	}
	c.Redirect(http.StatusFound, redirectTo)
}

// TakeFlashes retrieves pending flash messages and clears them, so a page
// refresh never re-displays them. The clear is best-effort: if the session
// save fails the messages are still returned, at worst they show twice.
func TakeFlashes(c *gin.Context) []string {
	session := sessions.Default(c)
	raw := session.Flashes()
	if err := session.Save(); err != nil {
		logger.Warn().Err(err).Msg("failed to clear flash messages")
	}

	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}
