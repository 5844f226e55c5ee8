// Package gatherer is the HTTP client for the Gatherer card search listing
// and its image handler.
//
// Listing pages are parsed with goquery; callers receive the tr.cardItem row
// selections and hand them to cardparse. Transport failures, non-200 statuses
// and missing paging controls surface as services.ErrSourceUnavailable. Image
// failures, including empty bodies, surface as services.ErrImageFetch.
package gatherer
