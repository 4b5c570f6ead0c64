package core

import (
	"time"

	"wellscope/internal/migrate"
	"wellscope/pkg/domain"
)

// SeedDocument constructs the first-boot document. Content is authored at the
// current baseline, so the migration pass has nothing to do on a fresh
// deployment.
func SeedDocument(now time.Time) domain.Document {
	base := func(id string) domain.Base {
		return domain.Base{ID: id, CreatedAt: now, UpdatedAt: now}
	}
	orgID := "org_1"
	return domain.Document{
		Meta: domain.Meta{Version: migrate.CurrentVersion, UpdatedAt: now},
		Users: []domain.User{
			{
				Base:           base("user_1"),
				Username:       "admin",
				Email:          "admin@example.com",
				FullName:       "مدیر سامانه",
				Role:           "admin",
				PasswordHash:   "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
				OrganizationID: &orgID,
			},
		},
		Organizations: []domain.Organization{
			{Base: base("org_1"), Name: "شرکت آب منطقه‌ای فارس", Region: "فارس"},
			{Base: base("org_2"), Name: "شرکت بهره‌برداری دشت مرکزی", Region: "مرکزی"},
		},
		Wells: []domain.Well{
			{Base: base("well_1"), OrganizationID: orgID, Name: "چاه شماره یک دشت ارژن", FieldName: "دشت ارژن", Latitude: 29.65, Longitude: 51.99, DepthMeters: 120, Status: domain.WellStatusActive},
			{Base: base("well_2"), OrganizationID: orgID, Name: "چاه شماره دو دشت ارژن", FieldName: "دشت ارژن", Latitude: 29.66, Longitude: 52.01, DepthMeters: 140, Status: domain.WellStatusActive},
			{Base: base("well_3"), OrganizationID: orgID, Name: "چاه پایش سطح ایستابی", FieldName: "دشت ارژن", Latitude: 29.68, Longitude: 52.03, DepthMeters: 95, Status: domain.WellStatusSuspended},
		},
		Datasets: []domain.Dataset{
			{Base: base("dataset_1"), OrganizationID: orgID, Name: "داده‌های سطح آب ۱۴۰۲", FileName: "water-levels-1402.csv", Revision: 1, Status: domain.DatasetStatusActive, UploadedBy: "user_1"},
		},
		Scenarios: []domain.Scenario{
			{Base: base("scenario_1"), DatasetID: "dataset_1", Name: "سناریوی کاهش برداشت", Description: "کاهش ده درصدی برداشت در افق پنج‌ساله", Parameters: map[string]float64{"reduction_pct": 10, "horizon_years": 5}, CreatedBy: "user_1"},
		},
		Models: []domain.Model{
			{Base: base("model_1"), Name: "مدل پیش‌بینی سطح ایستابی", Kind: "water_level_forecast", DatasetID: "dataset_1", Status: domain.ModelStatusDraft},
		},
		Reports: []domain.Report{
			{Base: base("report_1"), OrganizationID: orgID, Title: "گزارش ماهانه بهره‌برداری", FileName: "monthly-operations.pdf", GeneratedAt: now},
			{Base: base("report_2"), OrganizationID: orgID, Title: "گزارش سالانه تراز آبخوان", FileName: "annual-balance.pdf", GeneratedAt: now},
		},
	}
}
