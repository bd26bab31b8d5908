package feed

// TopicEvents is the GossipSub topic carrying committed events.
const TopicEvents = "/trending/events/1.0.0"

// rendezvousFallback is the discovery namespace when no NetworkID is set.
const rendezvousFallback = "trending-feed"
