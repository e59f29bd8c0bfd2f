// Package mqtt provides MQTT client connectivity for FrameHub Core.
//
// The client keeps one broker session alive with paho's auto-reconnect,
// replays subscriptions after each reconnect and bounds every publish by
// a context deadline. Core's own presence is a retained message on
// framehub/system/status, with a Last Will covering crashes.
//
// # Architecture
//
// The MQTT hub backend talks to a hub gateway over a broker. The gateway
// owns the home database (homes, rooms, accessories); Core mirrors it and
// sends characteristic writes and reads as request/response pairs.
//
//	FrameHub Core ↔ MQTT Broker ↔ Hub Gateway ↔ Accessories
//
// Topic layout (root defaults to framehub/hub):
//
//	<root>/auth                          retained authorization status
//	<root>/homes                         retained home list
//	<root>/home/{added,removed}          home events
//	<root>/accessory/{added,removed}/ID  accessory events per home
//	<root>/characteristic/ACC            value changes per accessory
//	<root>/request/RID                   Core → gateway
//	<root>/response/RID                  gateway → Core
//
// # Security Considerations
//
//   - Enable TLS outside the lab (cfg.Broker.TLS=true)
//   - Credentials are validated against the broker ACL
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{Root: cfg.Hub.TopicRoot}
//	err = client.Subscribe(topics.AllCharacteristics(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleChange(topic, payload)
//	    })
package mqtt
