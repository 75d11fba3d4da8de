package auditlog

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Middleware records one LogEntry per request after the handler returns.
// Handlers may enrich the in-flight entry with the Enrich* helpers.
func Middleware(logger LoggerInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if logger == nil || !logger.Config().Enabled {
				return next(c)
			}

			cfg := logger.Config()
			req := c.Request()
			operation := OperationForPath(req.URL.Path)
			if cfg.OnlyShippingOperations && operation == "" {
				return next(c)
			}

			start := time.Now()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Response().Header().Get(echo.HeaderXRequestID)
			}
			if requestID == "" {
				requestID = uuid.NewString()
				c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			}

			entry := &LogEntry{
				ID:        uuid.NewString(),
				Timestamp: start,
				Operation: operation,
				RequestID: requestID,
				ClientIP:  c.RealIP(),
				Method:    req.Method,
				Path:      req.URL.Path,
				Data: &LogData{
					UserAgent: req.UserAgent(),
				},
			}

			if authHeader := req.Header.Get(echo.HeaderAuthorization); authHeader != "" {
				entry.Data.APIKeyHash = hashAPIKey(authHeader)
			}

			if cfg.LogHeaders {
				entry.Data.RequestHeaders = extractHeaders(req.Header)
			}

			if cfg.LogBodies && req.Body != nil && req.ContentLength != 0 {
				if req.ContentLength > MaxBodyCapture {
					entry.Data.RequestBodyTooBigToHandle = true
				} else if bodyBytes, err := io.ReadAll(io.LimitReader(req.Body, MaxBodyCapture+1)); err == nil {
					if len(bodyBytes) > MaxBodyCapture {
						entry.Data.RequestBodyTooBigToHandle = true
					} else {
						entry.Data.RequestBody = decodeBody(bodyBytes)
					}
					req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), req.Body))
				}
			}

			c.Set(string(LogEntryKey), entry)

			var responseCapture *responseBodyCapture
			if cfg.LogBodies {
				responseCapture = &responseBodyCapture{
					ResponseWriter: c.Response().Writer,
					body:           &bytes.Buffer{},
				}
				c.Response().Writer = responseCapture
			}

			err := next(c)
			if err != nil {
				// let echo write the error response so the recorded status is final
				c.Error(err)
			}

			entry.DurationNs = time.Since(start).Nanoseconds()
			entry.StatusCode = c.Response().Status

			if cfg.LogHeaders {
				entry.Data.ResponseHeaders = extractHeaders(c.Response().Header())
			}

			if responseCapture != nil && responseCapture.body.Len() > 0 {
				entry.Data.ResponseBodyTooBigToHandle = responseCapture.truncated

				bodyBytes := responseCapture.body.Bytes()
				if contentEncoding := c.Response().Header().Get(echo.HeaderContentEncoding); contentEncoding != "" {
					if decompressed, ok := decompressBody(bodyBytes, contentEncoding); ok {
						bodyBytes = decompressed
					}
				}
				entry.Data.ResponseBody = decodeBody(bodyBytes)
			}

			logger.Write(entry)
			return nil
		}
	}
}

// responseBodyCapture tees the response body into a bounded buffer.
type responseBodyCapture struct {
	http.ResponseWriter
	body      *bytes.Buffer
	truncated bool
}

func (r *responseBodyCapture) Write(b []byte) (int, error) {
	if remaining := MaxBodyCapture - r.body.Len(); remaining > 0 {
		if len(b) > remaining {
			r.body.Write(b[:remaining])
			r.truncated = true
		} else {
			r.body.Write(b)
		}
	} else if len(b) > 0 {
		r.truncated = true
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseBodyCapture) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *responseBodyCapture) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := r.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// extractHeaders keeps the first value of each header and redacts sensitive ones.
func extractHeaders(headers map[string][]string) map[string]string {
	result := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) > 0 {
			result[key] = values[0]
		}
	}
	return RedactHeaders(result)
}

// hashAPIKey identifies a bearer token without storing it.
func hashAPIKey(authHeader string) string {
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])[:APIKeyHashPrefixLength]
}

func entryFromContext(c echo.Context) *LogEntry {
	entry, _ := c.Get(string(LogEntryKey)).(*LogEntry)
	return entry
}

// EnrichEntryWithQuote records the item count and the quote returned to the client.
func EnrichEntryWithQuote(c echo.Context, items int, quote string) {
	entry := entryFromContext(c)
	if entry == nil || entry.Data == nil {
		return
	}
	entry.Data.Items = items
	entry.Data.Quote = quote
}

// EnrichEntryWithShipment records the tracking ID issued for an order.
func EnrichEntryWithShipment(c echo.Context, trackingID string, items int) {
	entry := entryFromContext(c)
	if entry == nil {
		return
	}
	entry.TrackingID = trackingID
	if entry.Data != nil {
		entry.Data.Items = items
	}
}

// EnrichEntryWithError records the error type and message sent to the client.
func EnrichEntryWithError(c echo.Context, errorType, errorMessage string) {
	entry := entryFromContext(c)
	if entry == nil {
		return
	}
	entry.ErrorType = errorType
	if entry.Data != nil {
		entry.Data.ErrorMessage = errorMessage
	}
}

// decodeBody returns parsed JSON when possible, otherwise a valid UTF-8 string.
func decodeBody(b []byte) interface{} {
	var parsed interface{}
	if err := json.Unmarshal(b, &parsed); err == nil {
		return parsed
	}
	return toValidUTF8String(b)
}

func toValidUTF8String(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// decompressBody decodes gzip, deflate and br bodies. It returns the input unchanged and
// false when the encoding is unknown or decoding fails.
func decompressBody(body []byte, contentEncoding string) ([]byte, bool) {
	if len(body) == 0 || contentEncoding == "" {
		return body, false
	}

	encoding := strings.ToLower(strings.TrimSpace(strings.Split(contentEncoding, ",")[0]))
	if encoding == "identity" || encoding == "" {
		return body, false
	}

	const maxDecompressedSize = 2 * 1024 * 1024

	var reader io.ReadCloser
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return body, false
		}
		reader = gz
	case "deflate":
		reader = flate.NewReader(bytes.NewReader(body))
	case "br":
		reader = io.NopCloser(brotli.NewReader(bytes.NewReader(body)))
	default:
		return body, false
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(io.LimitReader(reader, maxDecompressedSize))
	if err != nil {
		return body, false
	}
	return decompressed, true
}
