package title

// PatternRule maps a regular expression to a canonical label. Rules are
// ordered; the first match wins and the matched text is stripped.
type PatternRule struct {
	Pattern string `mapstructure:"pattern"`
	Label   string `mapstructure:"label"`
}

// KeywordRule labels a title when any of its keywords appears. Rule order
// is the priority order for mutually exclusive fields.
type KeywordRule struct {
	Label    string   `mapstructure:"label"`
	Keywords []string `mapstructure:"keywords"`
}

// Tables bundles every lookup table the normalizer consults. Empty slices
// fall back to the defaults below.
type Tables struct {
	JobTypes    []PatternRule `mapstructure:"job_types"`
	Locations   []string      `mapstructure:"locations"`
	Categories  []KeywordRule `mapstructure:"categories"`
	Levels      []KeywordRule `mapstructure:"levels"`
	Departments []KeywordRule `mapstructure:"departments"`
	Skills      []string      `mapstructure:"skills"`
}

// DefaultTables returns the built-in rule tables. They cover the common
// ATS phrasings; deployments extend them through configuration.
func DefaultTables() Tables {
	return Tables{
		JobTypes: []PatternRule{
			{Pattern: `(?i)full[- ]?time`, Label: "Full-time"},
			{Pattern: `(?i)part[- ]?time`, Label: "Part-time"},
			{Pattern: `(?i)contract(?:or)?\b`, Label: "Contract"},
			{Pattern: `(?i)\bintern(?:ship)?\b`, Label: "Internship"},
			{Pattern: `(?i)\btemporary\b`, Label: "Temporary"},
			{Pattern: `(?i)\bfreelance\b`, Label: "Freelance"},
			{Pattern: `(?i)\bpermanent\b`, Label: "Permanent"},
		},
		// Work-arrangement tokens come first so they win over cities when
		// a title carries both ("Remote / Philadelphia, PA").
		Locations: []string{
			"Remote", "Hybrid", "On-site", "Onsite", "Worldwide",
			"New York, NY", "New York",
			"San Francisco, CA", "San Francisco",
			"Philadelphia, PA", "Philadelphia",
			"Austin, TX", "Boston, MA", "Seattle, WA", "Chicago, IL",
			"Los Angeles, CA", "Denver, CO",
			"London", "Berlin", "Amsterdam", "Paris", "Dublin",
			"Istanbul", "Ankara", "Izmir",
			"Toronto", "Vancouver",
			"United States", "USA", "United Kingdom", "Germany",
			"Netherlands", "Turkey", "Canada", "India", "Europe", "EMEA",
		},
		Categories: []KeywordRule{
			{Label: "Technology", Keywords: []string{
				"engineer", "developer", "devops", "sre", "architect",
				"software", "data scientist", "data analyst", "qa", "security",
			}},
			{Label: "Design", Keywords: []string{"designer", "ux", "ui", "illustrator"}},
			{Label: "Marketing", Keywords: []string{"marketing", "seo", "content", "growth", "brand"}},
			{Label: "Sales", Keywords: []string{"sales", "account executive", "business development"}},
			{Label: "Product", Keywords: []string{"product manager", "product owner"}},
			{Label: "Finance", Keywords: []string{"finance", "accountant", "accounting", "controller"}},
			{Label: "People", Keywords: []string{"recruiter", "talent", "people", "hr"}},
			{Label: "Operations", Keywords: []string{"operations", "logistics", "supply chain"}},
			{Label: "Support", Keywords: []string{"support", "customer success"}},
			{Label: "Legal", Keywords: []string{"legal", "counsel", "compliance"}},
		},
		Levels: []KeywordRule{
			{Label: "Lead", Keywords: []string{"lead", "principal", "staff", "head of", "director", "vp"}},
			{Label: "Senior", Keywords: []string{"senior", "sr"}},
			{Label: "Junior", Keywords: []string{"junior", "jr", "entry level", "graduate"}},
			{Label: "Intern", Keywords: []string{"intern", "trainee"}},
		},
		Departments: []KeywordRule{
			{Label: "Engineering", Keywords: []string{"engineer", "developer", "devops", "sre", "software"}},
			{Label: "Product", Keywords: []string{"product"}},
			{Label: "Design", Keywords: []string{"designer", "ux", "ui"}},
			{Label: "Marketing", Keywords: []string{"marketing", "seo", "growth", "content"}},
			{Label: "Sales", Keywords: []string{"sales", "account executive"}},
			{Label: "People", Keywords: []string{"recruiter", "talent", "people", "hr"}},
			{Label: "Finance", Keywords: []string{"finance", "accounting"}},
			{Label: "Operations", Keywords: []string{"operations", "logistics"}},
			{Label: "Support", Keywords: []string{"support", "customer success"}},
		},
		Skills: []string{
			"go", "golang", "python", "java", "javascript", "typescript",
			"react", "vue", "angular", "node", "rust", "ruby", "php",
			"swift", "kotlin", "c++", "c#", "sql", "postgres", "mysql",
			"redis", "kafka", "kubernetes", "docker", "terraform",
			"aws", "gcp", "azure", "salesforce", "figma", "seo",
		},
	}
}

func (t Tables) withDefaults() Tables {
	def := DefaultTables()
	if len(t.JobTypes) == 0 {
		t.JobTypes = def.JobTypes
	}
	if len(t.Locations) == 0 {
		t.Locations = def.Locations
	}
	if len(t.Categories) == 0 {
		t.Categories = def.Categories
	}
	if len(t.Levels) == 0 {
		t.Levels = def.Levels
	}
	if len(t.Departments) == 0 {
		t.Departments = def.Departments
	}
	if len(t.Skills) == 0 {
		t.Skills = def.Skills
	}
	return t
}
