package classifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-impact-lab/internal/domain"
)

func TestClassify_DefaultTable(t *testing.T) {
	c := MustDefault()

	tests := []struct {
		name   string
		fields []string
		want   domain.Family
		ok     bool
	}{
		{name: "payrolls", fields: []string{"Non-Farm Payrolls"}, want: "NFP", ok: true},
		{name: "payrolls no dash", fields: []string{"Nonfarm Payrolls (Dec)"}, want: "NFP", ok: true},
		{name: "case insensitive", fields: []string{"CORE CPI YOY"}, want: "CPI", ok: true},
		{name: "inflation rate is CPI", fields: []string{"Inflation Rate MoM"}, want: "CPI", ok: true},
		{name: "fed rate goes to FOMC first", fields: []string{"Fed Interest Rate Decision"}, want: "FOMC", ok: true},
		{name: "ecb rate goes to ECB first", fields: []string{"ECB Interest Rate Decision"}, want: "ECB", ok: true},
		{name: "zew is business confidence", fields: []string{"ZEW Economic Sentiment Index"}, want: "Business Confidence", ok: true},
		{name: "underscored key does not match", fields: []string{"", "us_retail_sales_mom"}, want: "", ok: false},
		{name: "match in key field", fields: []string{"", "retail sales mom"}, want: "Retail Sales", ok: true},
		{name: "no match", fields: []string{"Baker Hughes Oil Rig Count"}, want: domain.FamilyUnknown, ok: false},
		{name: "empty", fields: nil, want: domain.FamilyUnknown, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Classify(tt.fields...)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	c, err := New([]domain.FamilyInfo{
		{Family: "broad", Pattern: `sales`},
		{Family: "narrow", Pattern: `retail sales`},
	})
	require.NoError(t, err)

	got, ok := c.Classify("Retail Sales MoM")
	require.True(t, ok)
	assert.Equal(t, domain.Family("broad"), got)
}

func TestClassify_PatternDoesNotStraddleFields(t *testing.T) {
	c, err := New([]domain.FamilyInfo{{Family: "RS", Pattern: `retail sales`}})
	require.NoError(t, err)

	_, ok := c.Classify("retail", "sales")
	assert.False(t, ok)
}

func TestClassify_Fallback(t *testing.T) {
	c := MustDefault(WithFallback("Other"))

	got, ok := c.Classify("Baker Hughes Oil Rig Count")
	assert.True(t, ok)
	assert.Equal(t, domain.Family("Other"), got)

	got, ok = c.Classify("CPI YoY")
	assert.True(t, ok)
	assert.Equal(t, domain.Family("CPI"), got)
}

func TestClassifyNullable_NilFieldsCoerced(t *testing.T) {
	c := MustDefault()
	key := "gdp_qoq"

	got, ok := c.ClassifyNullable(nil, &key, nil)
	assert.True(t, ok)
	assert.Equal(t, domain.Family("GDP"), got)

	got, ok = c.ClassifyNullable(nil, nil)
	assert.False(t, ok)
	assert.Equal(t, domain.FamilyUnknown, got)
}

func TestClassifyEvent(t *testing.T) {
	c := MustDefault()

	preset := &domain.Event{Title: "CPI YoY", Family: "Custom"}
	got, ok := c.ClassifyEvent(preset)
	assert.True(t, ok)
	assert.Equal(t, domain.Family("Custom"), got)

	raw := &domain.Event{Title: "", EventKey: "", Label: "Housing Starts", Type: ""}
	got, ok = c.ClassifyEvent(raw)
	assert.True(t, ok)
	assert.Equal(t, domain.Family("Housing Starts"), got)

	got, ok = c.ClassifyEvent(nil)
	assert.False(t, ok)
	assert.Equal(t, domain.FamilyUnknown, got)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name  string
		table []domain.FamilyInfo
		want  error
	}{
		{name: "empty", table: nil, want: ErrEmptyTable},
		{name: "bad regex", table: []domain.FamilyInfo{{Family: "X", Pattern: `(unclosed`}}, want: ErrInvalidPattern},
		{name: "empty pattern", table: []domain.FamilyInfo{{Family: "X", Pattern: " "}}, want: ErrInvalidPattern},
		{name: "empty family", table: []domain.FamilyInfo{{Family: "", Pattern: "x"}}, want: ErrInvalidPattern},
		{name: "duplicate", table: []domain.FamilyInfo{{Family: "X", Pattern: "a"}, {Family: "X", Pattern: "b"}}, want: ErrDuplicateFamily},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.table)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestInfoAndImportance(t *testing.T) {
	c := MustDefault()

	info, ok := c.Info("NFP")
	require.True(t, ok)
	assert.Equal(t, 3, info.Importance)
	assert.Equal(t, 2.5, info.Sensitivity)

	assert.Equal(t, 1, c.Importance("Factory Orders"))
	assert.Equal(t, 0, c.Importance("Nope"))

	families := c.Families()
	require.Len(t, families, len(DefaultFamilies))
	assert.Equal(t, domain.Family("NFP"), families[0].Family)
	assert.Equal(t, domain.Family("ISM"), families[len(families)-1].Family)
}
