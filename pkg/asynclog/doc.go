// Package asynclog reports LLM calls that were made directly against a
// provider, bypassing the gateway, so they land in the same request and
// response records as proxied calls.
//
// A LogBuilder is single use: create it before the call, attach the
// outcome once, then submit it.
//
//	b := asynclog.NewLogBuilder(asynclog.RequestFromChat(req))
//	resp, err := openaiClient.CreateChatCompletion(ctx, req)
//	if err != nil {
//		b.AttachResponse(asynclog.ResponseError{Error: err.Error()})
//	} else {
//		b.AttachResponse(asynclog.ResponseFromChat(resp))
//	}
//	b.AttachUser("user-123")
//	result, err := client.Submit(ctx, b)
package asynclog
