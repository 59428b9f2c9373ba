package review

// Task is one review question asked about the code.
type Task struct {
	Name   string
	Prompt string
}

// DefaultTasks are asked in order against the same session.
var DefaultTasks = []Task{
	{
		Name: "constrained-parameters",
		Prompt: "Identify all constrained parameters in the code. Constrained parameters are parameters that were selected, " +
			"explicitly or implicitly, because the original query indicates them. Parameters means anything that would change " +
			"the output of the code if it were changed: function arguments, API request parameters, other settings.",
	},
	{
		Name: "free-parameters",
		Prompt: "Identify all free parameters in the code. These are the opposite of constrained parameters: the query does " +
			"not mention or imply them, so the code is making its own assumption about what they should be.",
	},
	{
		Name: "domain-concerns",
		Prompt: "Is there anything the code does that a domain expert would take issue with? Focus on the approach the code " +
			"takes to solve the task rather than structure or software design.",
	},
	{
		Name: "bugs",
		Prompt: "Do you see any potential bugs in this program? For example unreachable code, logic errors, off-by-one errors, " +
			"out of bounds access, race conditions or infinite loops.",
	},
	{
		Name:   "faulty-assumptions",
		Prompt: "Do you see any faulty assumptions in the code?",
	},
}

// TaskNames lists the names of tasks, in order.
func TaskNames(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name
	}
	return out
}
