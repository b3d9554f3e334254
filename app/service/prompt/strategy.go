package prompt

// Strategy identifies the template used to answer a message.
type Strategy int

const (
	StrategyGreeting Strategy = iota
	StrategyRoadmap
	StrategyExpandDirection
	StrategyMentorRedirect
	StrategySwitch
	StrategyRoleDescription
	StrategyDefaultOptions
	StrategyColdStart
)

var strategies = []Strategy{
	StrategyGreeting,
	StrategyRoadmap,
	StrategyExpandDirection,
	StrategyMentorRedirect,
	StrategySwitch,
	StrategyRoleDescription,
	StrategyDefaultOptions,
	StrategyColdStart,
}

func (s Strategy) String() string {
	switch s {
	case StrategyGreeting:
		return "greeting"
	case StrategyRoadmap:
		return "roadmap"
	case StrategyExpandDirection:
		return "expand_direction"
	case StrategyMentorRedirect:
		return "mentor_redirect"
	case StrategySwitch:
		return "strategy_switch"
	case StrategyRoleDescription:
		return "role_description"
	case StrategyDefaultOptions:
		return "default_options"
	case StrategyColdStart:
		return "cold_start"
	default:
		return "unknown"
	}
}

func (s Strategy) templateFile() string {
	return "templates/" + s.String() + ".txt"
}
