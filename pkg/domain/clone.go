package domain

// Clone returns a deep copy of the document. Record structs are value types;
// only maps and slices need explicit copies.
func (d Document) Clone() Document {
	cp := d
	cp.Users = append([]User(nil), d.Users...)
	cp.Sessions = append([]Session(nil), d.Sessions...)
	cp.Organizations = append([]Organization(nil), d.Organizations...)
	cp.Datasets = append([]Dataset(nil), d.Datasets...)
	cp.Wells = append([]Well(nil), d.Wells...)
	cp.Scenarios = make([]Scenario, len(d.Scenarios))
	for i, s := range d.Scenarios {
		cp.Scenarios[i] = cloneScenario(s)
	}
	cp.Models = append([]Model(nil), d.Models...)
	cp.Reports = append([]Report(nil), d.Reports...)
	cp.Audits = make([]AuditEntry, len(d.Audits))
	for i, a := range d.Audits {
		cp.Audits[i] = cloneAudit(a)
	}
	for i, u := range d.Users {
		if u.OrganizationID != nil {
			id := *u.OrganizationID
			cp.Users[i].OrganizationID = &id
		}
	}
	for i, m := range d.Models {
		if m.TrainedAt != nil {
			ts := *m.TrainedAt
			cp.Models[i].TrainedAt = &ts
		}
	}
	return cp
}

func cloneScenario(s Scenario) Scenario {
	cp := s
	if s.Parameters != nil {
		cp.Parameters = make(map[string]float64, len(s.Parameters))
		for k, v := range s.Parameters {
			cp.Parameters[k] = v
		}
	}
	return cp
}

func cloneAudit(a AuditEntry) AuditEntry {
	cp := a
	if a.Metadata != nil {
		cp.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}
