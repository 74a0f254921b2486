package engine

// Role families and difficulty bands the bank is normalized to. Raw
// role/difficulty strings from callers are mapped onto these.
const (
	roleGeneral  = "general"
	roleBackend  = "backend"
	roleFrontend = "frontend"
	roleData     = "data"
	roleDevOps   = "devops"
)

const (
	difficultyJunior = "junior"
	difficultyMid    = "mid"
	difficultySenior = "senior"
)

// BankQuestion is one curated entry. Topics feed the in-memory search
// index used for deep-dive lookups.
type BankQuestion struct {
	Role       string
	Difficulty string
	Intent     Intent
	Topics     []string
	Text       string
}

var bankQuestions = []BankQuestion{
	// general, junior
	{roleGeneral, difficultyJunior, IntentTechnicalSkills,
		[]string{"operating systems", "concurrency"},
		"What is the difference between a process and a thread?"},
	{roleGeneral, difficultyJunior, IntentProblemSolving,
		[]string{"debugging", "ci"},
		"Walk me through how you would debug a program that works on your machine but fails in CI."},
	{roleGeneral, difficultyJunior, IntentProblemSolving,
		[]string{"debugging"},
		"You get a bug report you cannot reproduce. What are your next steps?"},
	{roleGeneral, difficultyJunior, IntentBehavioral,
		[]string{"learning"},
		"Tell me about a time you had to learn a new technology quickly. How did you approach it?"},
	{roleGeneral, difficultyJunior, IntentSituational,
		[]string{"collaboration"},
		"Imagine you are blocked on a task and everyone who could help is busy. What do you do?"},
	{roleGeneral, difficultyJunior, IntentLeadership,
		[]string{"ownership"},
		"Tell me about a time you took ownership of a task nobody else wanted."},

	// general, mid
	{roleGeneral, difficultyMid, IntentTechnicalSkills,
		[]string{"databases", "indexing"},
		"How does a database index speed up reads, and when can it hurt write performance?"},
	{roleGeneral, difficultyMid, IntentTechnicalSkills,
		[]string{"distributed systems", "consistency"},
		"Explain eventual consistency to a junior engineer. When is it an acceptable trade?"},
	{roleGeneral, difficultyMid, IntentProblemSolving,
		[]string{"debugging", "memory"},
		"How would you approach finding the root cause of a memory leak in a long-running service?"},
	{roleGeneral, difficultyMid, IntentBehavioral,
		[]string{"collaboration", "conflict"},
		"Tell me about a time you disagreed with a teammate about a technical decision. How was it resolved?"},
	{roleGeneral, difficultyMid, IntentSituational,
		[]string{"incidents", "debugging"},
		"A release you shipped yesterday is causing intermittent errors for a small set of users. Walk me through your next hour."},
	{roleGeneral, difficultyMid, IntentLeadership,
		[]string{"influence", "leadership"},
		"Describe a time you influenced a technical decision without having formal authority."},
	{roleGeneral, difficultyMid, IntentLeadership,
		[]string{"mentoring", "leadership"},
		"Tell me about a time you mentored a less experienced engineer. What changed for them?"},

	// general, senior
	{roleGeneral, difficultySenior, IntentTechnicalSkills,
		[]string{"api design", "rate limiting", "scaling"},
		"How would you design a rate limiter for a public API used by thousands of clients?"},
	{roleGeneral, difficultySenior, IntentTechnicalSkills,
		[]string{"caching", "scaling"},
		"How would you design the caching strategy for a read-heavy product catalog?"},
	{roleGeneral, difficultySenior, IntentProblemSolving,
		[]string{"incidents", "debugging"},
		"Describe the hardest production incident you have root-caused. What made it hard?"},
	{roleGeneral, difficultySenior, IntentBehavioral,
		[]string{"communication"},
		"Tell me about a time you had to deliver bad news to stakeholders. How did you handle it?"},
	{roleGeneral, difficultySenior, IntentBehavioral,
		[]string{"failure", "learning"},
		"Describe a project that failed. What did you learn and apply later?"},
	{roleGeneral, difficultySenior, IntentSituational,
		[]string{"leadership", "conflict", "architecture"},
		"Two senior engineers on your team fundamentally disagree on an architecture. As tech lead, how do you move the project forward?"},
	{roleGeneral, difficultySenior, IntentLeadership,
		[]string{"leadership", "architecture"},
		"Tell me about a time you set technical direction for a team. How did you bring people along?"},
	{roleGeneral, difficultySenior, IntentLeadership,
		[]string{"leadership", "communication"},
		"Describe a time you pushed back on a deadline you believed was unsafe. What happened?"},

	// backend
	{roleBackend, difficultyJunior, IntentTechnicalSkills,
		[]string{"networking", "http"},
		"What happens between typing a URL into a browser and the page rendering?"},
	{roleBackend, difficultyJunior, IntentTechnicalSkills,
		[]string{"databases"},
		"When would you choose a relational database over a document store?"},
	{roleBackend, difficultyMid, IntentTechnicalSkills,
		[]string{"databases", "transactions"},
		"What isolation anomalies can appear at read committed, and how do you guard against them?"},
	{roleBackend, difficultyMid, IntentTechnicalSkills,
		[]string{"api design", "idempotency"},
		"How would you make a payment webhook handler safe against duplicate deliveries?"},
	{roleBackend, difficultyMid, IntentProblemSolving,
		[]string{"performance", "latency", "debugging"},
		"A service's p99 latency doubled after a deploy that did not touch the hot path. How do you investigate?"},
	{roleBackend, difficultyMid, IntentBehavioral,
		[]string{"legacy systems", "testing"},
		"Tell me about a time you had to change a legacy system you did not write. How did you make it safe?"},
	{roleBackend, difficultySenior, IntentTechnicalSkills,
		[]string{"databases", "sharding", "scaling"},
		"How would you shard a relational database that has outgrown a single primary?"},
	{roleBackend, difficultySenior, IntentTechnicalSkills,
		[]string{"messaging", "queues", "reliability"},
		"Design a queue consumer that is resilient to poison messages and duplicate delivery."},
	{roleBackend, difficultySenior, IntentProblemSolving,
		[]string{"caching", "debugging"},
		"Your cache hit rate dropped from 95% to 60% overnight. What are your hypotheses and how do you test them?"},

	// frontend
	{roleFrontend, difficultyJunior, IntentTechnicalSkills,
		[]string{"rendering", "browsers"},
		"What is the difference between the DOM and a virtual DOM?"},
	{roleFrontend, difficultyJunior, IntentBehavioral,
		[]string{"ux", "feedback"},
		"Tell me about a piece of user feedback that changed how you built an interface."},
	{roleFrontend, difficultyMid, IntentTechnicalSkills,
		[]string{"state management"},
		"How do you decide which state lives in a component and which in a global store?"},
	{roleFrontend, difficultyMid, IntentProblemSolving,
		[]string{"performance", "rendering"},
		"A page is janky while scrolling on mid-range phones. How do you find and fix the cause?"},
	{roleFrontend, difficultySenior, IntentTechnicalSkills,
		[]string{"performance", "bundling"},
		"How would you cut the initial load time of a large single-page application in half?"},

	// data
	{roleData, difficultyJunior, IntentTechnicalSkills,
		[]string{"sql", "databases"},
		"What is the difference between an inner join and a left join?"},
	{roleData, difficultyMid, IntentTechnicalSkills,
		[]string{"pipelines", "batch processing"},
		"Design a daily batch pipeline that tolerates upstream files arriving late or twice."},
	{roleData, difficultyMid, IntentSituational,
		[]string{"data quality", "debugging"},
		"A stakeholder says yesterday's dashboard numbers look wrong. How do you confirm and respond?"},
	{roleData, difficultySenior, IntentTechnicalSkills,
		[]string{"schema design", "warehousing"},
		"How would you evolve a warehouse schema without breaking downstream consumers?"},
	{roleData, difficultySenior, IntentProblemSolving,
		[]string{"performance", "pipelines", "debugging"},
		"A nightly job that took two hours now takes nine, and nothing obvious changed. Where do you look?"},

	// devops
	{roleDevOps, difficultyJunior, IntentTechnicalSkills,
		[]string{"networking", "load balancing"},
		"What does a load balancer do, and what strategies can it use to pick a backend?"},
	{roleDevOps, difficultyMid, IntentTechnicalSkills,
		[]string{"deployment", "availability"},
		"How would you design zero-downtime deploys for a stateful service?"},
	{roleDevOps, difficultyMid, IntentProblemSolving,
		[]string{"kubernetes", "debugging"},
		"One pod out of twenty is pinned at 100% CPU while the rest idle. What do you check?"},
	{roleDevOps, difficultySenior, IntentTechnicalSkills,
		[]string{"availability", "failover", "scaling"},
		"Walk me through designing multi-region failover for a latency-sensitive API."},
	{roleDevOps, difficultySenior, IntentSituational,
		[]string{"incidents", "tls"},
		"A routine certificate rotation takes down internal service-to-service traffic at peak. Walk me through your response."},
}
