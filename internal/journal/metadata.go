package journal

import "github.com/eventarena/server/internal/events"

// extractMetadata pulls the common ids (playerId, victimId, assistIds,
// source, matchId) out of a payload by event type. Event types with no
// natural id (tick payloads, map:loaded) return a zero EntryMetadata,
// which Record skips attaching unless the journal is match-scoped (Record
// then fills in matchId and attaches it).
func extractMetadata(t events.Type, payload any) EntryMetadata {
	switch t {
	case events.TypePlayerJoin:
		if p, ok := payload.(events.PlayerJoinPayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypePlayerMove:
		if p, ok := payload.(events.PlayerMovePayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypePlayerAimed:
		if p, ok := payload.(events.PlayerAimedPayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypePlayerDie:
		if p, ok := payload.(events.PlayerDiePayload); ok {
			return EntryMetadata{VictimID: p.PlayerID}
		}
	case events.TypePlayerDead:
		if p, ok := payload.(events.PlayerDeadPayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypePlayerKill:
		if p, ok := payload.(events.PlayerKillPayload); ok {
			return EntryMetadata{PlayerID: p.KillerID, VictimID: p.VictimID, AssistIDs: p.AssistIDs}
		}
	case events.TypePlayerLeave:
		if p, ok := payload.(events.PlayerLeavePayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypeProjectileSpawned:
		if p, ok := payload.(events.ProjectileSpawnedPayload); ok {
			return EntryMetadata{Source: p.OwnerID}
		}
	case events.TypeDamageApplied:
		if p, ok := payload.(events.DamageAppliedPayload); ok {
			return EntryMetadata{PlayerID: p.TargetID, Source: p.Source}
		}
	case events.TypeKnockbackApplied:
		if p, ok := payload.(events.KnockbackAppliedPayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypeDashStarted:
		if p, ok := payload.(events.DashStartedPayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypeDashEnded:
		if p, ok := payload.(events.DashEndedPayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypePickupCollected:
		if p, ok := payload.(events.PickupCollectedPayload); ok {
			return EntryMetadata{PlayerID: p.By}
		}
	case events.TypeBuffApplied:
		if p, ok := payload.(events.BuffAppliedPayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypeBuffExpired:
		if p, ok := payload.(events.BuffExpiredPayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypeMatchCreated:
		if p, ok := payload.(events.MatchCreatedPayload); ok {
			return EntryMetadata{MatchID: p.ID}
		}
	case events.TypeMatchStarted:
		if p, ok := payload.(events.MatchStartedPayload); ok {
			return EntryMetadata{MatchID: p.ID}
		}
	case events.TypeMatchEnded:
		if p, ok := payload.(events.MatchEndedPayload); ok {
			return EntryMetadata{MatchID: p.ID}
		}
	case events.TypeScoreUpdate:
		if p, ok := payload.(events.ScoreUpdatePayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypeStreakChanged:
		if p, ok := payload.(events.StreakChangedPayload); ok {
			return EntryMetadata{PlayerID: p.PlayerID}
		}
	case events.TypeCmdJoin, events.TypeCmdLeave, events.TypeCmdMove, events.TypeCmdAim,
		events.TypeCmdCast, events.TypeCmdRespawn:
		if id := cmdPlayerID(payload); id != "" {
			return EntryMetadata{PlayerID: id}
		}
	}
	return EntryMetadata{}
}

// cmdPlayerID extracts the bound player id from an inbound command payload,
// used so the journal can attribute commands without a type switch for
// each of the near-identical Cmd*Payload shapes.
func cmdPlayerID(payload any) string {
	switch p := payload.(type) {
	case events.CmdJoinPayload:
		return p.PlayerID
	case events.CmdLeavePayload:
		return p.PlayerID
	case events.CmdMovePayload:
		return p.PlayerID
	case events.CmdAimPayload:
		return p.PlayerID
	case events.CmdCastPayload:
		return p.PlayerID
	case events.CmdRespawnPayload:
		return p.PlayerID
	}
	return ""
}
