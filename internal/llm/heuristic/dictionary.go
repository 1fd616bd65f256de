package heuristic

// skill pairs a lowercase match term with its display spelling.
type skill struct {
	term    string
	display string
}

var technicalSkills = []skill{
	// languages
	{"python", "Python"}, {"java", "Java"}, {"javascript", "JavaScript"}, {"typescript", "TypeScript"},
	{"c++", "C++"}, {"c#", "C#"}, {"php", "PHP"}, {"ruby", "Ruby"}, {"go", "Go"}, {"golang", "Go"},
	{"rust", "Rust"}, {"swift", "Swift"}, {"kotlin", "Kotlin"}, {"scala", "Scala"}, {"sql", "SQL"},
	{"html", "HTML"}, {"css", "CSS"}, {"bash", "Bash"}, {"powershell", "PowerShell"},
	// frameworks
	{"react", "React"}, {"angular", "Angular"}, {"vue", "Vue"}, {"node.js", "Node.js"},
	{"express", "Express"}, {"django", "Django"}, {"flask", "Flask"}, {"spring", "Spring"},
	{"laravel", "Laravel"}, {"rails", "Rails"}, {"asp.net", "ASP.NET"}, {".net", ".NET"},
	{"graphql", "GraphQL"}, {"rest", "REST"}, {"microservices", "Microservices"},
	// databases
	{"mysql", "MySQL"}, {"postgresql", "PostgreSQL"}, {"mongodb", "MongoDB"}, {"redis", "Redis"},
	{"elasticsearch", "Elasticsearch"}, {"oracle", "Oracle"}, {"sqlite", "SQLite"},
	{"cassandra", "Cassandra"}, {"dynamodb", "DynamoDB"},
	// cloud and devops
	{"aws", "AWS"}, {"azure", "Azure"}, {"gcp", "GCP"}, {"docker", "Docker"},
	{"kubernetes", "Kubernetes"}, {"jenkins", "Jenkins"}, {"terraform", "Terraform"},
	{"ansible", "Ansible"}, {"git", "Git"}, {"ci/cd", "CI/CD"}, {"linux", "Linux"}, {"nginx", "Nginx"},
	// data
	{"tensorflow", "TensorFlow"}, {"pytorch", "PyTorch"}, {"pandas", "Pandas"}, {"numpy", "NumPy"},
	{"spark", "Spark"}, {"hadoop", "Hadoop"}, {"kafka", "Kafka"}, {"tableau", "Tableau"},
	// mobile
	{"android", "Android"}, {"ios", "iOS"}, {"react native", "React Native"}, {"flutter", "Flutter"},
	// process
	{"agile", "Agile"}, {"scrum", "Scrum"},
}

var softSkills = []skill{
	{"leadership", "Leadership"}, {"communication", "Communication"}, {"teamwork", "Teamwork"},
	{"problem-solving", "Problem Solving"}, {"problem solving", "Problem Solving"},
	{"analytical", "Analytical"}, {"creative", "Creative"}, {"adaptable", "Adaptable"},
	{"organized", "Organized"}, {"detail-oriented", "Detail Oriented"}, {"collaborative", "Collaborative"},
	{"mentoring", "Mentoring"}, {"coaching", "Coaching"}, {"negotiation", "Negotiation"},
	{"presentation", "Presentation"}, {"project management", "Project Management"},
}

var (
	degreeTerms      = []string{"bachelor", "master", "phd", "ph.d", "doctor", "b.s", "b.a", "bsc", "msc", "m.s", "m.a", "mba", "associate", "diploma"}
	institutionTerms = []string{"university", "college", "institute", "school", "academy"}
)
