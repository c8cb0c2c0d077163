package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	metaContextKey = "response_meta"

	MetaCacheHit       = "cache_hit"
	MetaProcessingTime = "processing_time_ms"
	MetaSessionID      = "session_id"
)

// WithResponseMeta gives each request a meta map that handlers fill and the
// envelope echoes back. Processing time is stamped once the chain returns
// unless a handler already measured its own.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		c.Set(metaContextKey, meta)
		c.Next()
		if _, ok := meta[MetaProcessingTime]; !ok {
			meta[MetaProcessingTime] = time.Since(start).Milliseconds()
		}
	}
}

// SetMeta stores a single meta entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	metaFor(c)[key] = value
}

// SetCacheHit marks whether the payload came from the requirement cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, MetaCacheHit, hit)
}

// ExtractMeta returns the meta collected so far, or nil outside WithResponseMeta.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, ok := c.Get(metaContextKey)
	if !ok {
		return nil
	}
	meta, _ := raw.(map[string]interface{})
	return meta
}

func metaFor(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	c.Set(metaContextKey, meta)
	return meta
}
