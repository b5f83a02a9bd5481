package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

// testPartner builds an approved partner with millisecond timestamps, which
// every backend round-trips exactly.
func testPartner(id, code string, created time.Time) *models.Partner {
	p := models.NewPartner(id, "Partner "+id, id+"@partners.example", code)
	p.Status = models.PartnerStatusApproved
	p.CreatedAt = created.Truncate(time.Millisecond)
	p.UpdatedAt = p.CreatedAt
	return p
}

func testVisit(id, partnerID string, created time.Time) *models.ReferralVisit {
	return &models.ReferralVisit{
		ID:           id,
		PartnerID:    partnerID,
		ReferralCode: "PARTNER42",
		VisitorID:    "abcd1234abcd1234",
		LandingPage:  "/products/high-bay",
		IPAddress:    "203.0.113.9",
		UserAgent:    "Mozilla/5.0",
		UTMSource:    "newsletter",
		CreatedAt:    created.Truncate(time.Millisecond),
	}
}

// runStorageConformance exercises the behaviour every backend must share.
func runStorageConformance(t *testing.T, newStorage func(t *testing.T) Storage) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	t.Run("partner round trip", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		p := testPartner("p-1", "PARTNER42", base)
		p.Company = "Bright Installs Ltd"
		require.NoError(t, s.SavePartner(ctx, p))

		got, err := s.GetPartner(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, p.Name, got.Name)
		assert.Equal(t, p.Company, got.Company)
		assert.Equal(t, models.PartnerStatusApproved, got.Status)
		assert.True(t, p.CreatedAt.Equal(got.CreatedAt))

		byCode, err := s.GetPartnerByReferralCode(ctx, "PARTNER42")
		require.NoError(t, err)
		assert.Equal(t, "p-1", byCode.ID)

		_, err = s.GetPartnerByReferralCode(ctx, "partner42")
		assert.True(t, errors.Is(err, ErrNotFound), "referral codes are case-sensitive")

		_, err = s.GetPartner(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("partner update and listing", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		require.NoError(t, s.SavePartner(ctx, testPartner("p-2", "SECOND", base.Add(time.Hour))))
		require.NoError(t, s.SavePartner(ctx, testPartner("p-1", "FIRST", base)))

		p, err := s.GetPartner(ctx, "p-2")
		require.NoError(t, err)
		require.NoError(t, p.SetStatus(models.PartnerStatusRejected))
		require.NoError(t, s.SavePartner(ctx, p))

		partners, err := s.Partners(ctx)
		require.NoError(t, err)
		require.Len(t, partners, 2)
		assert.Equal(t, "p-1", partners[0].ID)
		assert.Equal(t, models.PartnerStatusRejected, partners[1].Status)
	})

	t.Run("duplicate referral code", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		require.NoError(t, s.SavePartner(ctx, testPartner("p-1", "TAKEN", base)))
		err := s.SavePartner(ctx, testPartner("p-2", "TAKEN", base))
		assert.True(t, errors.Is(err, ErrDuplicateReferralCode), "got %v", err)
	})

	t.Run("visits are append only and newest first", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		require.NoError(t, s.SavePartner(ctx, testPartner("p-1", "PARTNER42", base)))
		require.NoError(t, s.InsertReferralVisit(ctx, testVisit("v-1", "p-1", base.Add(time.Minute))))
		require.NoError(t, s.InsertReferralVisit(ctx, testVisit("v-2", "p-1", base.Add(2*time.Minute))))

		visits, err := s.ReferralVisits(ctx, "p-1")
		require.NoError(t, err)
		require.Len(t, visits, 2)
		assert.Equal(t, "v-2", visits[0].ID)
		assert.Equal(t, "v-1", visits[1].ID)
		assert.Equal(t, "newsletter", visits[0].UTMSource)
		assert.Empty(t, visits[0].UTMMedium)
		assert.Equal(t, "/products/high-bay", visits[0].LandingPage)

		empty, err := s.ReferralVisits(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("delete partner", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		require.NoError(t, s.SavePartner(ctx, testPartner("p-1", "WITHVISITS", base)))
		require.NoError(t, s.SavePartner(ctx, testPartner("p-2", "NOVISITS", base)))
		require.NoError(t, s.InsertReferralVisit(ctx, testVisit("v-1", "p-1", base)))

		assert.True(t, errors.Is(s.DeletePartner(ctx, "p-1"), ErrHasDependencies))
		require.NoError(t, s.DeletePartner(ctx, "p-2"))
		assert.True(t, errors.Is(s.DeletePartner(ctx, "p-2"), ErrNotFound))

		// the freed code can be reused
		require.NoError(t, s.SavePartner(ctx, testPartner("p-3", "NOVISITS", base)))
	})

	t.Run("case studies", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		for i, product := range []string{"ot-series-120", "plb-60"} {
			require.NoError(t, s.SaveCaseStudy(ctx, &models.CaseStudy{
				ID:        fmt.Sprintf("cs-%d", i),
				Slug:      fmt.Sprintf("study-%d", i),
				Title:     "Study",
				Product:   product,
				Published: i == 0,
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
				UpdatedAt: base.Add(time.Duration(i) * time.Hour),
			}))
		}

		studies, err := s.CaseStudies(ctx)
		require.NoError(t, err)
		require.Len(t, studies, 2)
		assert.Equal(t, "cs-1", studies[0].ID, "newest first")
		assert.False(t, studies[0].Published)
		assert.True(t, studies[1].Published)
	})

	t.Run("api keys", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()

		raw, err := models.GenerateAPIKey()
		require.NoError(t, err)
		key := models.NewAPIKey("k-1", "ci", raw, []string{models.PermissionWrite})
		require.NoError(t, s.CreateAPIKey(ctx, key))

		got, err := s.GetAPIKeyByHash(ctx, models.HashAPIKey(raw))
		require.NoError(t, err)
		assert.Equal(t, "ci", got.Name)
		assert.Equal(t, []string{models.PermissionWrite}, got.Permissions)
		assert.True(t, got.Enabled)

		_, err = s.GetAPIKeyByHash(ctx, "nope")
		assert.True(t, errors.Is(err, ErrNotFound))

		assert.Error(t, s.CreateAPIKey(ctx, models.NewAPIKey("k-2", "dup", raw, nil)))

		keys, err := s.ListAPIKeys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStorage(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}
