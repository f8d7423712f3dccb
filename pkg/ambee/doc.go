// Package ambee is a client for the Ambee environmental data API.
//
// A Client is bound to one coordinate and fetches the latest air quality,
// pollen or weather record for it:
//
//	err := ambee.With(ctx, ambee.ClientConfig{
//		APIKey:    key,
//		Latitude:  52.42,
//		Longitude: 6.42,
//	}, func(ctx context.Context, c *ambee.Client) error {
//		aq, err := c.AirQuality(ctx)
//		if err != nil {
//			return err
//		}
//		fmt.Println(*aq.AirQualityIndex)
//		return nil
//	})
//
// # Errors
//
// Failed requests return an *Error whose Kind tells connection problems
// (KindConnection, KindTimeout, KindAuthentication) from error responses
// (KindAPI). The sentinels work with errors.Is:
//
//	if errors.Is(err, ambee.ErrConnection) {
//		// network, timeout or rejected key
//	}
//
// A successful response that lacks the array or object a record is read
// from yields an error wrapping ErrUnexpectedShape instead.
//
// # Sessions
//
// Without ClientConfig.HTTPClient the client creates its own session on the
// first request and releases it on Close. A session passed in is shared
// with the caller and never closed by the client.
package ambee
