package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackReferralRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     TrackReferralRequest
		wantErr string
	}{
		{"valid", TrackReferralRequest{ReferralCode: "PARTNER42", VisitorID: "abcd1234abcd1234"}, ""},
		{"missing code", TrackReferralRequest{VisitorID: "abcd1234abcd1234"}, "referralCode"},
		{"whitespace code", TrackReferralRequest{ReferralCode: "   ", VisitorID: "abcd1234abcd1234"}, "referralCode"},
		{"missing visitor", TrackReferralRequest{ReferralCode: "PARTNER42"}, "visitorId"},
		{"oversize code", TrackReferralRequest{ReferralCode: strings.Repeat("x", MaxTrackIdentifierLength+1), VisitorID: "v"}, "exceeds"},
		{"oversize visitor", TrackReferralRequest{ReferralCode: "PARTNER42", VisitorID: strings.Repeat("v", MaxTrackIdentifierLength+1)}, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTrackReferralRequest_Normalize(t *testing.T) {
	req := TrackReferralRequest{ReferralCode: " PARTNER42 ", VisitorID: "\tabcd1234abcd1234\n", LandingPage: " /products "}
	req.Normalize()

	assert.Equal(t, "PARTNER42", req.ReferralCode)
	assert.Equal(t, "abcd1234abcd1234", req.VisitorID)
	assert.Equal(t, "/products", req.LandingPage)
}

func TestCreatePartnerRequest(t *testing.T) {
	req := CreatePartnerRequest{Name: "Bright", Email: "a@b.example", ReferralCode: "BRIGHT42", Status: "approved"}
	require.NoError(t, req.Validate())

	p := req.ToPartner("p-1")
	assert.Equal(t, PartnerStatusApproved, p.Status)
	assert.Equal(t, "BRIGHT42", p.ReferralCode)

	req.Status = "bogus"
	assert.Error(t, req.Validate())
}

func TestCreateAPIKeyRequest_Validate(t *testing.T) {
	assert.NoError(t, (&CreateAPIKeyRequest{Name: "ci", Permissions: []string{"read"}}).Validate())
	assert.Error(t, (&CreateAPIKeyRequest{Name: "", Permissions: []string{"read"}}).Validate())
	assert.Error(t, (&CreateAPIKeyRequest{Name: "ci"}).Validate())
	assert.Error(t, (&CreateAPIKeyRequest{Name: "ci", Permissions: []string{"root"}}).Validate())
}
