package classifier

import "fx-impact-lab/internal/domain"

// DefaultFamilies is the ordered reference table of announcement families.
// Order matters: the first matching pattern wins, so specific labor-market
// patterns precede the broader ones and the generic central-bank tags precede
// the explicit rate-decision tags.
var DefaultFamilies = []domain.FamilyInfo{
	// US labor market
	{Family: "NFP", Pattern: `non[- ]?farm payrolls|nonfarm`, Importance: 3, Sensitivity: 2.5, Unit: "K", Description: "Non-farm payrolls"},
	{Family: "Unemployment", Pattern: `unemployment rate`, Importance: 3, Sensitivity: 2.0, Unit: "%", Description: "Unemployment rate"},
	{Family: "Jobless Claims", Pattern: `initial jobless claims|continuing jobless claims|jobless claims`, Importance: 2, Sensitivity: 1.5, Unit: "K", Description: "Weekly jobless claims"},
	{Family: "Employment Change", Pattern: `employment change`, Importance: 2, Sensitivity: 1.4, Unit: "K", Description: "Employment change"},

	// Inflation
	{Family: "CPI", Pattern: `cpi|consumer price|inflation rate|core inflation|harmonised inflation`, Importance: 3, Sensitivity: 2.3, Unit: "%", Description: "Consumer price inflation"},
	{Family: "PPI", Pattern: `ppi|producer price`, Importance: 2, Sensitivity: 1.3, Unit: "%", Description: "Producer price inflation"},
	{Family: "PCE", Pattern: `pce|personal consumption`, Importance: 2, Sensitivity: 1.7, Unit: "%", Description: "Personal consumption expenditures"},

	// Central banks
	{Family: "FOMC", Pattern: `fomc|fed (interest )?rate|federal funds rate`, Importance: 3, Sensitivity: 3.0, Unit: "%", Description: "Federal Reserve policy decision"},
	{Family: "ECB", Pattern: `ecb|european central bank rate`, Importance: 3, Sensitivity: 2.8, Unit: "%", Description: "European Central Bank policy"},
	{Family: "BOE", Pattern: `boe|bank of england rate`, Importance: 3, Sensitivity: 2.2, Unit: "%", Description: "Bank of England policy"},
	{Family: "Fed Rate", Pattern: `fed interest rate decision`, Importance: 3, Sensitivity: 3.0, Unit: "%", Description: "Fed rate decision"},
	{Family: "ECB Rate", Pattern: `ecb interest rate decision`, Importance: 3, Sensitivity: 2.8, Unit: "%", Description: "ECB rate decision"},

	// Growth and activity
	{Family: "GDP", Pattern: `gdp|gross domestic product`, Importance: 3, Sensitivity: 1.8, Unit: "%", Description: "Gross domestic product"},
	{Family: "Retail Sales", Pattern: `retail sales`, Importance: 2, Sensitivity: 1.4, Unit: "%", Description: "Retail sales"},
	{Family: "Industrial Production", Pattern: `industrial production`, Importance: 1, Sensitivity: 0.9, Unit: "%", Description: "Industrial production"},

	// Sentiment
	{Family: "Consumer Confidence", Pattern: `consumer confidence|consumer sentiment`, Importance: 2, Sensitivity: 1.0, Unit: "Index", Description: "Consumer confidence"},
	{Family: "Business Confidence", Pattern: `business confidence|zew`, Importance: 1, Sensitivity: 0.7, Unit: "Index", Description: "Business confidence"},
	{Family: "PMI", Pattern: `pmi|purchasing managers|manufacturing pmi|services pmi`, Importance: 2, Sensitivity: 1.2, Unit: "Index", Description: "Purchasing managers index"},

	// External trade
	{Family: "Trade Balance", Pattern: `trade balance|balance of trade`, Importance: 2, Sensitivity: 0.8, Unit: "B", Description: "Trade balance"},
	{Family: "Current Account", Pattern: `current account`, Importance: 1, Sensitivity: 0.6, Unit: "B", Description: "Current account"},

	// Housing
	{Family: "Housing Starts", Pattern: `housing starts`, Importance: 1, Sensitivity: 0.8, Unit: "K", Description: "Housing starts"},
	{Family: "Building Permits", Pattern: `building permits`, Importance: 1, Sensitivity: 0.7, Unit: "K", Description: "Building permits"},
	{Family: "Home Sales", Pattern: `home sales|existing home|new home`, Importance: 1, Sensitivity: 0.9, Unit: "K", Description: "Home sales"},

	// Orders and surveys
	{Family: "Durable Goods", Pattern: `durable goods`, Importance: 1, Sensitivity: 1.0, Unit: "%", Description: "Durable goods orders"},
	{Family: "Factory Orders", Pattern: `factory orders`, Importance: 1, Sensitivity: 0.8, Unit: "%", Description: "Factory orders"},
	{Family: "ISM", Pattern: `ism manufacturing|ism services|ism non-manufacturing`, Importance: 2, Sensitivity: 1.3, Unit: "Index", Description: "ISM business surveys"},
}
