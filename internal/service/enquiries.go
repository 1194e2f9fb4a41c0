package service

import (
	"context"
	"net/url"
	"strconv"

	"github.com/johndosdos/eventhub/internal/model"
)

// Quote is a venue partner's priced response to an enquiry. Amount is in
// minor units of Currency.
type Quote struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required,len=3"`
	Notes    string `json:"notes,omitempty" validate:"max=2000"`
}

type quoteResponse struct {
	Decision string `json:"decision" validate:"required,oneof=accept decline"`
}

func (a *API) CreateEnquiry(ctx context.Context, req model.CreateEnquiryRequest) (model.Enquiry, error) {
	var e model.Enquiry
	if err := a.check(req); err != nil {
		return e, err
	}
	err := a.client.Post(ctx, "/venue-requests", req, &e)
	return e, err
}

// ListEnquiries returns the enquiries the signed-in user takes part in.
func (a *API) ListEnquiries(ctx context.Context) ([]model.Enquiry, error) {
	var res []model.Enquiry
	err := a.client.Get(ctx, "/venue-requests", &res)
	return res, err
}

func (a *API) SendQuote(ctx context.Context, requestID string, q Quote) (model.Enquiry, error) {
	var e model.Enquiry
	if err := a.check(q); err != nil {
		return e, err
	}
	err := a.client.Post(ctx, pathf("/venue-requests/%s/quote", requestID), q, &e)
	return e, err
}

// RespondToQuote accepts or declines the quote on an enquiry.
func (a *API) RespondToQuote(ctx context.Context, requestID string, accept bool) (model.Enquiry, error) {
	req := quoteResponse{Decision: "decline"}
	if accept {
		req.Decision = "accept"
	}
	var e model.Enquiry
	err := a.client.Post(ctx, pathf("/venue-requests/%s/quote/respond", requestID), req, &e)
	return e, err
}

// EnquiryMessages returns up to limit messages of the enquiry chat, oldest
// first. A limit of zero leaves the page size to the server.
func (a *API) EnquiryMessages(ctx context.Context, requestID string, limit int) ([]model.ChatMessage, error) {
	path := pathf("/venue-requests/%s/messages", requestID)
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var res model.MessageHistory
	err := a.client.Get(ctx, path, &res)
	return res.Messages, err
}
