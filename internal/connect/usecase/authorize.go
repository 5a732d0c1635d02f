package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/instagram"
)

// Provider is the OAuth client of one connector.
type Provider struct {
	OAuth oauth2.Config
	// Extras are appended to the authorization URL, e.g. config_id for Meta.
	Extras map[string]string
}

type AuthorizeInput struct {
	Provider string `validate:"required,oneof=meta instagram shopify google_sheets"`
	Shop     string
}

type AuthorizeOutput struct {
	URL   string
	State string
}

var reShopDomain = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// ProviderEndpoint returns the OAuth endpoint of a connector. Shopify
// endpoints depend on the shop and are resolved per request.
func ProviderEndpoint(provider string) oauth2.Endpoint {
	switch provider {
	case entity.ProviderMeta:
		return facebook.Endpoint
	case entity.ProviderInstagram:
		return instagram.Endpoint
	case entity.ProviderGoogleSheets:
		return google.Endpoint
	default:
		return oauth2.Endpoint{}
	}
}

// ShopifyEndpoint returns the OAuth endpoint of one shop.
func ShopifyEndpoint(shop string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   "https://" + shop + "/admin/oauth/authorize",
		TokenURL:  "https://" + shop + "/admin/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// AuthorizeURL starts an OAuth flow. The returned state is kept in the
// session and checked when the provider calls back.
func (s *Usecase) AuthorizeURL(ctx context.Context, in AuthorizeInput) (*AuthorizeOutput, error) {
	ctx, span := s.startSpan(ctx, "AuthorizeURL")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	store, err := s.bind(ctx)
	if err != nil {
		return nil, err
	}

	p, ok := s.cfg.Providers[in.Provider]
	if !ok {
		slog.WarnContext(ctx, "connector is not configured", "provider", in.Provider)
		return nil, goerror.NewBusiness("connector is not configured", goerror.CodeNotFound)
	}

	conf := p.OAuth
	var opts []oauth2.AuthCodeOption
	switch in.Provider {
	case entity.ProviderShopify:
		shop := strings.ToLower(strings.TrimSpace(in.Shop))
		if !reShopDomain.MatchString(shop) {
			return nil, goerror.NewInvalidInput(nil, "shop", "must be a myshopify.com domain")
		}
		conf.Endpoint = ShopifyEndpoint(shop)
	case entity.ProviderGoogleSheets:
		opts = append(opts, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	}

	for k, v := range p.Extras {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	state := s.uuid.Generate()
	if err := store.Set(ctx, entity.KeyConnectorStatePrefix+in.Provider, state); err != nil {
		slog.ErrorContext(ctx, "failed to store oauth state", "provider", in.Provider, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &AuthorizeOutput{URL: conf.AuthCodeURL(state, opts...), State: state}, nil
}
