package model

import "fmt"

// Categories - фиксированный список категорий в порядке отображения.
var Categories = []string{
	"Professional Development",
	"Leadership",
	"Team Management",
	"Conflict Resolution",
	"Time Management",
	"Communication",
	"Problem Solving",
	"Strategic Thinking",
	"Project Management",
}

// firstScenarios - заранее написанные первые сценарии для каждой категории,
// чтобы первая страница сессии открывалась без обращения к модели.
var firstScenarios = map[string]Scenario{
	"Professional Development": {
		Description: "You're a junior developer who just discovered a critical security vulnerability in the production code. The fix is simple but requires a database migration that could cause a 5-minute downtime. The vulnerability could potentially expose customer data. What do you do?",
		Options: []string{
			"Fix it immediately without telling anyone to avoid panic",
			"Report it to your manager and suggest a maintenance window",
			"Document it and add it to the next sprint planning",
			"Discuss it with the team lead and propose a hotfix",
		},
		BestOption: 1,
	},
	"Leadership": {
		Description: "Your team is behind schedule on a critical project. The client is expecting delivery next week, but your team estimates they need two more weeks. The team is already working overtime and showing signs of burnout. What do you do?",
		Options: []string{
			"Push the team harder to meet the deadline",
			"Ask the client for an extension",
			"Cut corners to deliver on time",
			"Reallocate resources from other projects",
		},
		BestOption: 1,
	},
	"Team Management": {
		Description: "Two of your team members are in constant conflict, affecting team morale and productivity. One is more experienced but resistant to change, while the other is innovative but sometimes dismissive of established practices. What do you do?",
		Options: []string{
			"Let them work it out themselves",
			"Separate them into different projects",
			"Facilitate a mediation session",
			"Assign them to work together more closely",
		},
		BestOption: 2,
	},
	"Conflict Resolution": {
		Description: "A team member consistently takes credit for others' work in meetings. This is causing resentment among the team. The person is otherwise a good performer. What do you do?",
		Options: []string{
			"Call them out publicly in the next meeting",
			"Have a private conversation about teamwork",
			"Ignore it to avoid conflict",
			"Document instances for HR",
		},
		BestOption: 1,
	},
	"Time Management": {
		Description: "You have three urgent tasks due by the end of the day: a client presentation, a code review, and preparing for tomorrow's team meeting. You can only complete two of them. What do you do?",
		Options: []string{
			"Work late to complete all three",
			"Delegate the code review to a team member",
			"Reschedule the team meeting",
			"Ask for help with the presentation",
		},
		BestOption: 1,
	},
	"Communication": {
		Description: "You need to communicate a major change in project direction that will require significant rework. The team is already stressed about current deadlines. What do you do?",
		Options: []string{
			"Announce it in the next team meeting",
			"Send a detailed email to everyone",
			"Meet with team leads first, then the whole team",
			"Schedule individual meetings with each team member",
		},
		BestOption: 2,
	},
	"Problem Solving": {
		Description: "A critical production system is down, and the error logs are unclear. The team is divided on the root cause. What do you do?",
		Options: []string{
			"Try the most popular solution first",
			"Roll back to the last stable version",
			"Gather more data before making a decision",
			"Split the team to try different approaches",
		},
		BestOption: 2,
	},
	"Strategic Thinking": {
		Description: "Your company is considering adopting a new technology that could give you a competitive edge but requires significant retraining. The current system is stable but becoming outdated. What do you do?",
		Options: []string{
			"Stick with the current system until it's completely obsolete",
			"Immediately switch to the new technology",
			"Run a pilot project with the new technology",
			"Form a committee to study the options",
		},
		BestOption: 2,
	},
	"Project Management": {
		Description: "Your project is at risk of missing its deadline due to unexpected technical challenges. The client is adamant about the original timeline. What do you do?",
		Options: []string{
			"Cut features to meet the deadline",
			"Request more resources from management",
			"Negotiate a new timeline with the client",
			"Ask the team to work overtime",
		},
		BestOption: 2,
	},
}

// IsValidCategory сообщает, входит ли name в список категорий.
func IsValidCategory(name string) bool {
	_, ok := firstScenarios[name]
	return ok
}

// FirstScenario возвращает копию заранее подготовленного сценария категории.
func FirstScenario(category string) (Scenario, error) {
	s, ok := firstScenarios[category]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	s.Options = append([]string(nil), s.Options...)
	return s, nil
}
