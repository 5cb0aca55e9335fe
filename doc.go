// Package printpal is a client for the PrintPal image/text-to-3D generation API.
//
// A Client authenticates with an API key (falling back to $PRINTPAL_API_KEY),
// validates generation parameters against the tier compatibility table before
// any network call, submits images as streamed multipart uploads or prompts
// as JSON, polls generation status until a terminal state or a tier-derived
// deadline, and saves finished models from presigned download handles.
//
// Every failure is an *Error whose Kind identifies the category
// (authentication, insufficient credits, rate limiting, validation, server
// failure, poll timeout and so on) and carries structured context such as
// required versus available credits or the Retry-After hint. The client never
// retries; IsRetriable tells callers which kinds are transient.
//
//	client, err := printpal.New("", printpal.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	path, err := client.GenerateAndDownload(ctx, "chair.png", "chair.stl",
//		printpal.GenerationRequest{Quality: printpal.QualityHigh},
//		printpal.WaitOptions{})
package printpal
