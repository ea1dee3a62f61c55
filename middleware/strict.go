package middleware

import (
	"net/http"

	"github.com/MrEthical07/blogauth"
)

func RequireStrict(engine *blogauth.Engine, extract TokenExtractor) func(http.Handler) http.Handler {
	return Guard(engine, blogauth.ModeStrict, extract)
}
