package core

// RecordPatch carries a partial update; nil fields are left untouched.
// Archive and unarchive are just IsActive toggles through the same path.
type RecordPatch struct {
	Name      *string
	Amount    *Money
	Currency  *string
	Category  *string
	Frequency *Frequency
	StartDate *Date
	EndDate   *Date
	Asset     *AssetPosition
	IsActive  *bool
}

// Apply overlays the patch onto a copy of r and returns it. The result
// still needs Validate before persisting.
func (p RecordPatch) Apply(r Record) Record {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Currency != nil {
		r.Currency = *p.Currency
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Frequency != nil {
		r.Frequency = *p.Frequency
	}
	if p.StartDate != nil {
		r.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		r.EndDate = *p.EndDate
	}
	if p.Asset != nil {
		asset := *p.Asset
		r.Asset = &asset
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
	return r
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Name == nil && p.Amount == nil && p.Currency == nil &&
		p.Category == nil && p.Frequency == nil && p.StartDate == nil &&
		p.EndDate == nil && p.Asset == nil && p.IsActive == nil
}
