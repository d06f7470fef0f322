// Package stardex provides a Go client for the stardex spatial catalog
// service.
//
// All distances cross the wire in light-years; positions are meter
// triples straight from the catalog.
//
//	client, _ := stardex.New("http://localhost:8080")
//	hits, _ := client.Near(ctx, "Jita", 12.5)
//	for _, h := range hits {
//	    fmt.Printf("%s at %.2f ly\n", h.System.Name, h.DistanceLY)
//	}
//
// Server-side failures come back as *APIError carrying the HTTP status
// and the machine-readable code from the error envelope:
//
//	if _, err := client.Lookup(ctx, "Atlantis"); err != nil {
//	    var apiErr *stardex.APIError
//	    if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
//	        // unknown system
//	    }
//	}
package stardex
