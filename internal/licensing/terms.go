package licensing

// LicenseTerms mirrors the protocol's programmable license parameters.
// Monetary fields are decimal strings in base units so the canonical content
// hash is stable across encoders.
type LicenseTerms struct {
	Transferable           bool    `json:"transferable"`
	RoyaltyPolicy          Address `json:"royaltyPolicy"`
	DefaultMintingFee      string  `json:"defaultMintingFee"`
	Expiration             string  `json:"expiration"`
	CommercialUse          bool    `json:"commercialUse"`
	CommercialAttribution  bool    `json:"commercialAttribution"`
	CommercializerChecker  Address `json:"commercializerChecker"`
	CommercialRevShare     uint32  `json:"commercialRevShare"` // percent
	CommercialRevCeiling   string  `json:"commercialRevCeiling"`
	DerivativesAllowed     bool    `json:"derivativesAllowed"`
	DerivativesAttribution bool    `json:"derivativesAttribution"`
	DerivativesApproval    bool    `json:"derivativesApproval"`
	DerivativesReciprocal  bool    `json:"derivativesReciprocal"`
	DerivativeRevCeiling   string  `json:"derivativeRevCeiling"`
	Currency               Address `json:"currency"`
	URI                    string  `json:"uri"`
}

// DefaultCommercialRemix returns the commercial-remix terms every flight asset
// is licensed under: free to mint, no expiration, 10% revenue share to the
// registrant, derivatives allowed with attribution.
func DefaultCommercialRemix(currency, royaltyPolicy Address) LicenseTerms {
	return LicenseTerms{
		Transferable:           true,
		RoyaltyPolicy:          royaltyPolicy,
		DefaultMintingFee:      "0",
		Expiration:             "0",
		CommercialUse:          true,
		CommercialAttribution:  true,
		CommercializerChecker:  ZeroAddress,
		CommercialRevShare:     10,
		CommercialRevCeiling:   "0",
		DerivativesAllowed:     true,
		DerivativesAttribution: true,
		DerivativesApproval:    false,
		DerivativesReciprocal:  true,
		DerivativeRevCeiling:   "0",
		Currency:               currency,
		URI:                    "",
	}
}
