package tables

import (
	"fmt"
	"strings"
	"time"

	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/model"
)

// Class describes one MACRS asset class from the published catalog.
type Class struct {
	Name          string
	GDSLife       float64
	ADSLife       float64
	Method        model.DepreciationMethod
	BonusEligible bool
	QIP           bool
	RealProperty  bool
	ListedAuto    bool
}

// qipEffectiveDate is the first in-service date for which the 15-year
// qualified improvement property class exists.
var qipEffectiveDate = time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)

var classCatalog = []Class{
	{Name: "Computer Software", GDSLife: 3, ADSLife: 3, Method: model.Method200DB, BonusEligible: true},
	{Name: "Tractor Units & Over-the-Road Trucks", GDSLife: 3, ADSLife: 4, Method: model.Method200DB, BonusEligible: true},
	{Name: "Computers & Peripherals", GDSLife: 5, ADSLife: 5, Method: model.Method200DB, BonusEligible: true},
	{Name: "Office Machinery", GDSLife: 5, ADSLife: 6, Method: model.Method200DB, BonusEligible: true},
	{Name: "Automobiles", GDSLife: 5, ADSLife: 5, Method: model.Method200DB, BonusEligible: true, ListedAuto: true},
	{Name: "Light Trucks & Vans", GDSLife: 5, ADSLife: 5, Method: model.Method200DB, BonusEligible: true, ListedAuto: true},
	{Name: "Appliances & Carpets", GDSLife: 5, ADSLife: 9, Method: model.Method200DB, BonusEligible: true},
	{Name: "Office Furniture & Fixtures", GDSLife: 7, ADSLife: 10, Method: model.Method200DB, BonusEligible: true},
	{Name: "Machinery & Equipment", GDSLife: 7, ADSLife: 12, Method: model.Method200DB, BonusEligible: true},
	{Name: "Agricultural Equipment", GDSLife: 7, ADSLife: 10, Method: model.Method200DB, BonusEligible: true},
	{Name: "Water Vessels", GDSLife: 10, ADSLife: 18, Method: model.Method200DB, BonusEligible: true},
	{Name: "Land Improvements", GDSLife: 15, ADSLife: 20, Method: model.Method150DB, BonusEligible: true},
	{Name: "Qualified Improvement Property", GDSLife: 15, ADSLife: 20, Method: model.MethodStraightLine, BonusEligible: true, QIP: true},
	{Name: "Farm Buildings", GDSLife: 20, ADSLife: 25, Method: model.Method150DB, BonusEligible: true},
	{Name: "Residential Rental Property", GDSLife: 27.5, ADSLife: 30, Method: model.MethodStraightLine, RealProperty: true},
	{Name: "Nonresidential Real Property", GDSLife: 39, ADSLife: 40, Method: model.MethodStraightLine, RealProperty: true},
}

var classByName = func() map[string]Class {
	m := make(map[string]Class, len(classCatalog))
	for _, c := range classCatalog {
		m[strings.ToLower(c.Name)] = c
	}
	return m
}()

// ClassByName looks up a catalog class, case-insensitively.
func ClassByName(name string) (Class, error) {
	c, ok := classByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Class{}, fmt.Errorf("%w: asset class %q", common.ErrNotFound, name)
	}
	return c, nil
}

// AllClasses returns the catalog in declaration order.
func AllClasses() []Class {
	out := make([]Class, len(classCatalog))
	copy(out, classCatalog)
	return out
}

// QIPAvailable reports whether the QIP class exists for an in-service date.
func QIPAvailable(inService time.Time) bool {
	return !inService.Before(qipEffectiveDate)
}

// Convention returns the statutory convention family for a class: mid-month
// for real property, half-year otherwise (subject to the batch mid-quarter test).
func (c Class) Convention() model.Convention {
	if c.RealProperty {
		return model.ConventionMidMonth
	}
	return model.ConventionHalfYear
}

// Apply copies the class attributes onto a classification result.
func (c Class) Apply(result *model.ClassificationResult) {
	result.ClassName = c.Name
	result.RecoveryYears = c.GDSLife
	result.Method = c.Method
	result.Convention = c.Convention()
	result.BonusEligible = c.BonusEligible
	result.QIP = c.QIP
	result.IsRealProperty = c.RealProperty
	result.IsListedAuto = c.ListedAuto
}
