package contracts

// TopicBuildEvents carries BuildEvent messages keyed by run ID.
const TopicBuildEvents = "rocks.lpci.build-events"
