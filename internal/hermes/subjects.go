package hermes

const (
	SubjectSolveRequest      = "economy.solve.request"
	SubjectEquilibriumFound  = "economy.equilibrium.found"
	SubjectDictatorSolvedAll = "economy.dictator.*.solved"

	StreamName     = "EDGEWORTH_EVENTS"
	StreamSubjects = "economy.>"
	StreamMaxAge   = "720h" // 30 days
)

func SubjectScenarioCreated(id string) string { return "economy.scenario." + id + ".created" }
func SubjectScenarioUpdated(id string) string { return "economy.scenario." + id + ".updated" }
func SubjectScenarioDeleted(id string) string { return "economy.scenario." + id + ".deleted" }

func SubjectDictatorSolved(agent string) string { return "economy.dictator." + agent + ".solved" }
