// Package httpclient builds HTTP requests from request descriptors and
// provides the shared client used to send them.
//
// # Request Building
//
// [NewRequest] converts a [request.Descriptor] into an *http.Request. Header
// keys are canonicalized and rejected when they contain line breaks; the body
// is replayable through GetBody so redirects can resend it:
//
//	req, err := httpclient.NewRequest(ctx, descriptor)
//	if err != nil {
//		return err
//	}
//
// [LoadBody] resolves the configured body from an inline value or a file.
//
// # HTTP Client
//
// [NewClient] creates a client with connection reuse sized for load runs and
// an overall per-request timeout:
//
//	client := httpclient.NewClient(30 * time.Second)
//	resp, err := client.Do(req)
package httpclient
