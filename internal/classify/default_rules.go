package classify

// DefaultRules is the built-in keyword table. Deployments extend or replace
// it through the rules configuration file.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "computers", ClassName: "Computers & Peripherals", Keywords: []string{"computer", "laptop", "desktop", "server", "monitor", "workstation"}, Weight: 0.95, Priority: 100},
		{Name: "peripherals", ClassName: "Computers & Peripherals", Keywords: []string{"printer", "scanner", "router", "switch", "keyboard"}, Weight: 0.85, Priority: 90},
		{Name: "software", ClassName: "Computer Software", Keywords: []string{"software", "license", "erp", "crm"}, Weight: 0.90, Priority: 95},
		{Name: "office-furniture", ClassName: "Office Furniture & Fixtures", Keywords: []string{"desk", "chair", "cabinet", "shelving", "cubicle", "furniture", "bookcase"}, Weight: 0.90, Priority: 90},
		{Name: "office-machines", ClassName: "Office Machinery", Keywords: []string{"copier", "typewriter", "calculator", "postage"}, Weight: 0.85, Priority: 80},
		{Name: "autos", ClassName: "Automobiles", Keywords: []string{"car", "sedan", "automobile", "suv"}, Weight: 0.90, Priority: 85},
		{Name: "light-trucks", ClassName: "Light Trucks & Vans", Keywords: []string{"truck", "van", "pickup"}, Weight: 0.85, Priority: 84},
		{Name: "heavy-trucks", ClassName: "Tractor Units & Over-the-Road Trucks", Keywords: []string{"tractor", "semi", "trailer"}, Weight: 0.85, Priority: 86},
		{Name: "machinery", ClassName: "Machinery & Equipment", Keywords: []string{"machine", "machinery", "equipment", "press", "lathe", "forklift", "compressor"}, Weight: 0.85, Priority: 70},
		{Name: "appliances", ClassName: "Appliances & Carpets", Keywords: []string{"refrigerator", "stove", "dishwasher", "carpet", "appliance"}, Weight: 0.85, Priority: 75},
		{Name: "farm", ClassName: "Agricultural Equipment", Keywords: []string{"plow", "harvester", "combine", "irrigation"}, Weight: 0.85, Priority: 72},
		{Name: "land-improvements", ClassName: "Land Improvements", Keywords: []string{"parking", "fence", "sidewalk", "landscaping", "paving"}, Weight: 0.88, Priority: 78},
		{Name: "qip", ClassName: "Qualified Improvement Property", Keywords: []string{"leasehold", "buildout", "tenant improvement", "interior improvement"}, Weight: 0.88, Priority: 82},
		{Name: "residential", ClassName: "Residential Rental Property", Keywords: []string{"apartment", "residential", "duplex", "rental house"}, Weight: 0.90, Priority: 88},
		{Name: "nonresidential", ClassName: "Nonresidential Real Property", Keywords: []string{"building", "warehouse", "office building", "storefront"}, Weight: 0.85, Priority: 77},
		{Name: "vessel", ClassName: "Water Vessels", Keywords: []string{"boat", "barge", "vessel"}, Weight: 0.85, Priority: 74},
	}
}
