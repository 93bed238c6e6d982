package monetization

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pevans/trendstoday/newsletter"
)

// DefaultPeriod is the aggregation window when none is given.
const DefaultPeriod = "30d"

// ValidateAlert checks a deal alert request. Zero prices count as missing.
func ValidateAlert(email, productName string, targetPrice, currentPrice float64) error {
	if email == "" || productName == "" || targetPrice == 0 || currentPrice == 0 {
		return ErrMissingFields
	}
	if targetPrice >= currentPrice {
		return ErrTargetNotBelow
	}
	if newsletter.ValidateEmail(email) != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ExpectedSavings formats the drop from currentPrice to targetPrice as
// "$X.XX (N%)".
func ExpectedSavings(targetPrice, currentPrice float64) string {
	diff := currentPrice - targetPrice
	pct := math.Round(diff / currentPrice * 100)
	return fmt.Sprintf("$%.2f (%d%%)", diff, int(pct))
}

// ParsePeriod turns "30d" or "4w" into a duration.
func ParsePeriod(period string) (time.Duration, error) {
	if len(period) < 2 {
		return 0, ErrInvalidPeriod
	}
	n, err := strconv.Atoi(period[:len(period)-1])
	if err != nil || n <= 0 {
		return 0, ErrInvalidPeriod
	}
	switch period[len(period)-1] {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}
	return 0, ErrInvalidPeriod
}

// ClientIP returns the first X-Forwarded-For hop, or "unknown".
func ClientIP(forwardedFor string) string {
	first, _, _ := strings.Cut(forwardedFor, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return "unknown"
}

// ProviderRevenue is one affiliate provider's share.
type ProviderRevenue struct {
	Provider string  `json:"provider"`
	Revenue  float64 `json:"revenue"`
	Clicks   int     `json:"clicks"`
}

// AffiliateMetrics summarises affiliate clicks.
type AffiliateMetrics struct {
	Total        float64           `json:"total"`
	Clicks       int               `json:"clicks"`
	TopProviders []ProviderRevenue `json:"topProviders"`
}

// PremiumMetrics summarises premium signups.
type PremiumMetrics struct {
	Total         float64 `json:"total"`
	Subscriptions int     `json:"subscriptions"`
}

// LeadMetrics counts lead generation signups.
type LeadMetrics struct {
	DealAlerts int `json:"dealAlerts"`
	Newsletter int `json:"newsletter"`
}

// RevenueMetrics aggregates the events of one period.
type RevenueMetrics struct {
	AffiliateRevenue AffiliateMetrics `json:"affiliateRevenue"`
	PremiumRevenue   PremiumMetrics   `json:"premiumRevenue"`
	Leads            LeadMetrics      `json:"leads"`
	TotalRevenue     float64          `json:"totalRevenue"`
	Events           int              `json:"events"`
	Period           string           `json:"period"`
	LastUpdated      time.Time        `json:"lastUpdated"`
}

// MaxTopProviders bounds AffiliateMetrics.TopProviders.
const MaxTopProviders = 3

// Aggregate summarises events for the dashboard.
func Aggregate(events []Event, period string, now time.Time) RevenueMetrics {
	m := RevenueMetrics{
		AffiliateRevenue: AffiliateMetrics{TopProviders: []ProviderRevenue{}},
		Events:           len(events),
		Period:           period,
		LastUpdated:      now.UTC(),
	}

	providers := map[string]*ProviderRevenue{}
	for _, e := range events {
		switch e.Type {
		case EventAffiliateClick:
			m.AffiliateRevenue.Total += e.Value
			m.AffiliateRevenue.Clicks++
			p := providers[e.Provider]
			if p == nil {
				p = &ProviderRevenue{Provider: e.Provider}
				providers[e.Provider] = p
			}
			p.Revenue += e.Value
			p.Clicks++
		case EventPremiumSignup:
			m.PremiumRevenue.Total += e.Value
			m.PremiumRevenue.Subscriptions++
		case EventDealAlertSignup:
			m.Leads.DealAlerts++
		case EventNewsletter:
			m.Leads.Newsletter++
		}
	}

	for _, p := range providers {
		m.AffiliateRevenue.TopProviders = append(m.AffiliateRevenue.TopProviders, *p)
	}
	slices.SortFunc(m.AffiliateRevenue.TopProviders, func(a, b ProviderRevenue) int {
		if c := cmp.Compare(b.Revenue, a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Provider, b.Provider)
	})
	if len(m.AffiliateRevenue.TopProviders) > MaxTopProviders {
		m.AffiliateRevenue.TopProviders = m.AffiliateRevenue.TopProviders[:MaxTopProviders]
	}

	m.AffiliateRevenue.Total = roundCents(m.AffiliateRevenue.Total)
	m.PremiumRevenue.Total = roundCents(m.PremiumRevenue.Total)
	m.TotalRevenue = roundCents(m.AffiliateRevenue.Total + m.PremiumRevenue.Total)
	return m
}

// Metric picks one section of m by its JSON name. "all" returns m itself.
func (m RevenueMetrics) Metric(name string) (any, error) {
	switch name {
	case "", "all":
		return m, nil
	case "affiliateRevenue":
		return m.AffiliateRevenue, nil
	case "premiumRevenue":
		return m.PremiumRevenue, nil
	case "leads":
		return m.Leads, nil
	case "totalRevenue":
		return m.TotalRevenue, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
